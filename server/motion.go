package server

// snapEpsilon 吸收浮点误差，避免在距离恰为一步时多走一个 Tick
const snapEpsilon = 1e-9

// tickSpeed 击退优先于加速
func tickSpeed(p *Player, cfg Config) float64 {
	switch {
	case p.Knockback:
		return cfg.KnockbackSpeedPerTick
	case p.Boosting:
		return cfg.SpeedPerTick * cfg.BoostMagnitude
	default:
		return cfg.SpeedPerTick
	}
}

// integrate 以固定步长朝目标点移动；剩余距离不超过一步时直接吸附到目标，
// 击退状态在到达强制目标时解除。位置最终裁剪到世界范围。
func integrate(p *Player, cfg Config) {
	if !p.Target.Finite() {
		p.Target = p.Position
	}
	delta := p.Target.Sub(p.Position)
	dist := delta.Len()
	speed := tickSpeed(p, cfg)

	if dist > speed+snapEpsilon {
		p.Velocity = delta.Scale(speed / dist)
		p.Position = p.Position.Add(p.Velocity)
	} else {
		p.Velocity = delta
		p.Position = p.Target
		if p.Knockback {
			p.Knockback = false
		}
	}
	p.Position = ClampToRect(p.Position, cfg.WorldWidth, cfg.WorldHeight, 0)
}
