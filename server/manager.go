package server

import (
	"sort"
	"sync"
)

// DefaultRoomID 未指定房间时使用
const DefaultRoomID = "room-1"

// RoomInfo 房间列表项
type RoomInfo struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	cfg   Config
	opts  []RoomOption
}

// NewRoomManager 新房间均以 cfg 为初始配置
func NewRoomManager(cfg Config, opts ...RoomOption) *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room), cfg: cfg, opts: opts}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id, m.cfg, m.opts...)
		m.rooms[id] = r
		r.StartTicker()
	}
	return r
}

// Room 只查找，不创建
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// ListRooms 按 ID 排序
func (m *RoomManager) ListRooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for id, r := range m.rooms {
		out = append(out, RoomInfo{ID: id, Players: r.Metrics().PlayerCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown 停止所有房间
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}
