package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（HTTP 协程读取，Tick 协程写入）
type RoomMetrics struct {
	TickCount        int64 // 统计的 Tick 次数
	InputsAccepted   int64 // 被接受并应用的意图数
	StaleIgnored     int64 // 玩家已离开时到达的意图数
	MalformedDropped int64 // 无法解析的入站消息数
	QueueFullDropped int64 // 因该玩家意图队列满被丢弃的意图数
	RateLimited      int64 // 因同帧限流被拒绝的意图数
	OldSeqIgnored    int64 // 因旧序列被忽略的意图数
	DropsSimulated   int64 // 因模拟丢包被丢弃的意图数
	Kicks            int64 // 心跳超时踢出次数
	Collisions       int64 // 处理的碰撞对数
	StepPanics       int64 // 单个玩家步骤中被恢复的 panic 数
	Broadcasts       int64 // 快照广播次数
	Players          int64 // 当前在线人数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted() { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncStaleIgnored() { atomic.AddInt64(&m.StaleIgnored, 1) }
func (m *RoomMetrics) IncMalformed() { atomic.AddInt64(&m.MalformedDropped, 1) }
func (m *RoomMetrics) IncQueueFull() { atomic.AddInt64(&m.QueueFullDropped, 1) }
func (m *RoomMetrics) IncRateLimited() { atomic.AddInt64(&m.RateLimited, 1) }
func (m *RoomMetrics) IncOldSeqIgnored() { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *RoomMetrics) IncDropsSimulated() { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *RoomMetrics) IncKicks() { atomic.AddInt64(&m.Kicks, 1) }
func (m *RoomMetrics) IncCollisions() { atomic.AddInt64(&m.Collisions, 1) }
func (m *RoomMetrics) IncStepPanics() { atomic.AddInt64(&m.StepPanics, 1) }
func (m *RoomMetrics) IncBroadcasts() { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *RoomMetrics) SetPlayers(n int) { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *RoomMetrics) PlayerCount() int { return int(atomic.LoadInt64(&m.Players)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":         tick,
		"inputs_accepted":    atomic.LoadInt64(&m.InputsAccepted),
		"stale_ignored":      atomic.LoadInt64(&m.StaleIgnored),
		"malformed_dropped":  atomic.LoadInt64(&m.MalformedDropped),
		"queue_full_dropped": atomic.LoadInt64(&m.QueueFullDropped),
		"rate_limited":       atomic.LoadInt64(&m.RateLimited),
		"old_seq_ignored":    atomic.LoadInt64(&m.OldSeqIgnored),
		"drops_simulated":    atomic.LoadInt64(&m.DropsSimulated),
		"kicks":              atomic.LoadInt64(&m.Kicks),
		"collisions":         atomic.LoadInt64(&m.Collisions),
		"step_panics":        atomic.LoadInt64(&m.StepPanics),
		"broadcasts":         atomic.LoadInt64(&m.Broadcasts),
		"players":            atomic.LoadInt64(&m.Players),
		"avg_tick_ms":        avgMs,
	}
}
