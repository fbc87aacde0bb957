package server

import "time"

// updateBoost 加速中消耗、否则回复，结果始终在 [0, maxBoost]
func updateBoost(p *Player, cfg Config) {
	if p.Boosting {
		p.Boost -= cfg.BoostDepleteRate
		if p.Boost <= 0 {
			p.Boost = 0
			p.Boosting = false
		}
	} else {
		p.Boost += cfg.BoostRegenRate
	}
	p.Boost = Clamp(p.Boost, 0, cfg.MaxBoost)
}

// heartbeatExpired 超过 maxHeartbeatInterval 未收到任何意图
func heartbeatExpired(p *Player, now time.Time, maxInterval time.Duration) bool {
	return now.Sub(p.LastHeartbeat) > maxInterval
}

// checkLiveness 踢出心跳超时的玩家；在运动与碰撞之前执行，被踢玩家本 Tick 不再处理
func (r *Room) checkLiveness(now time.Time) {
	r.store.Each(func(p *Player) {
		if heartbeatExpired(p, now, r.cfg.MaxHeartbeatInterval) {
			Log.Infow("heartbeat timeout", "room", r.ID, "player", p.ID,
				"silent", now.Sub(p.LastHeartbeat).String())
			r.kick(p, KickReasonTimeout)
		}
	})
}
