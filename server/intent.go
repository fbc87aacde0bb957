package server

import "math"

// applyIntent 只作用于意图来源连接对应的玩家；玩家已不存在时静默忽略。
// 返回 false 表示意图未被应用（玩家不存在或序列号过旧）
func (r *Room) applyIntent(in Intent) bool {
	p, ok := r.store.Get(in.PlayerID)
	if !ok {
		r.metrics.IncStaleIgnored()
		return false
	}
	if in.Seq > 0 {
		if in.Seq <= p.LastSeq {
			r.metrics.IncOldSeqIgnored()
			return false
		}
		p.LastSeq = in.Seq
	}
	r.metrics.IncAccepted()
	p.LastHeartbeat = r.now()

	switch in.Kind {
	case IntentMovement:
		r.applyMovement(p, in.Target)
	case IntentBoostStart:
		applyBoostStart(p)
	case IntentBoostStop:
		applyBoostStop(p)
	case IntentHeartbeat:
		// 仅续期心跳
	}
	return true
}

// applyMovement 击退期间忽略移动意图，保留强制目标
func (r *Room) applyMovement(p *Player, target Vec2) {
	if p.Knockback || !target.Finite() {
		return
	}
	target = r.sanitizeTarget(target)
	p.Target = target
	p.Angle = CalcAngle(p.Position, target) + r.cfg.AngleOffset
}

// sanitizeTarget 按需取整，越界裁剪到世界范围内
func (r *Room) sanitizeTarget(t Vec2) Vec2 {
	if r.cfg.RoundMovement {
		t = Vec2{X: math.Round(t.X), Y: math.Round(t.Y)}
	}
	return ClampToRect(t, r.cfg.WorldWidth, r.cfg.WorldHeight, 0)
}

func applyBoostStart(p *Player) {
	if p.Boost > 0 {
		p.Boosting = true
	}
}

func applyBoostStop(p *Player) {
	p.Boosting = false
}
