package server

import "time"

// PlayerID 连接唯一标识（由传输层分配，连接存活期间稳定）
type PlayerID string

// PlayerState 广播给客户端的玩家状态
type PlayerState struct {
	ID        string  `json:"id" msgpack:"id"`
	Position  Vec2    `json:"position" msgpack:"position"`
	Angle     float64 `json:"angle" msgpack:"angle"`
	Velocity  Vec2    `json:"velocity" msgpack:"velocity"`
	Radius    float64 `json:"radius" msgpack:"radius"`
	Boost     float64 `json:"boost" msgpack:"boost"`
	Boosting  bool    `json:"boosting" msgpack:"boosting"`
	Knockback bool    `json:"knockback" msgpack:"knockback"`
}

// Player 房间内的玩家实体（服务端权威状态）
type Player struct {
	ID       PlayerID
	Position Vec2
	Radius   float64
	Angle    float64 // 朝向，角度制
	Target   Vec2    // 正常由客户端意图设置，击退期间由碰撞结果覆盖
	Velocity Vec2    // 每 Tick 由 Position→Target 重新推导

	Boost     float64
	Boosting  bool
	Knockback bool

	LastHeartbeat time.Time
	LastSeq       int64 // 已应用意图的最大序列号；0 表示客户端未编号

	Conn Conn // 发送端；测试中可为 nil
}

// State 生成当前玩家的广播快照
func (p *Player) State() PlayerState {
	return PlayerState{
		ID:        string(p.ID),
		Position:  p.Position,
		Angle:     p.Angle,
		Velocity:  p.Velocity,
		Radius:    p.Radius,
		Boost:     p.Boost,
		Boosting:  p.Boosting,
		Knockback: p.Knockback,
	}
}
