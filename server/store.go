package server

import "sort"

// PlayerStore 连接 ID → 玩家实体 的权威映射。
// 非并发安全：只允许房间 Tick 协程访问。
type PlayerStore struct {
	players map[PlayerID]*Player
}

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{players: make(map[PlayerID]*Player)}
}

// Get 不存在时返回 nil, false
func (s *PlayerStore) Get(id PlayerID) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Insert 插入新玩家；ID 已注册时返回 false，不覆盖
func (s *PlayerStore) Insert(p *Player) bool {
	if _, ok := s.players[p.ID]; ok {
		return false
	}
	s.players[p.ID] = p
	return true
}

// Remove 移除并返回被删除的玩家
func (s *PlayerStore) Remove(id PlayerID) (*Player, bool) {
	p, ok := s.players[id]
	if ok {
		delete(s.players, id)
	}
	return p, ok
}

func (s *PlayerStore) Len() int { return len(s.players) }

// IDs 按字典序返回所有 ID，保证同一 Tick 内的处理顺序确定
func (s *PlayerStore) IDs() []PlayerID {
	ids := make([]PlayerID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each 按 IDs 顺序遍历；遍历期间删除元素是安全的（已删除的跳过）
func (s *PlayerStore) Each(fn func(p *Player)) {
	for _, id := range s.IDs() {
		if p, ok := s.players[id]; ok {
			fn(p)
		}
	}
}

// Snapshot 拷贝出全部玩家状态（id → state）
func (s *PlayerStore) Snapshot() map[string]PlayerState {
	out := make(map[string]PlayerState, len(s.players))
	for id, p := range s.players {
		out[string(id)] = p.State()
	}
	return out
}
