package server

import "math"

// resolveCollisions 遍历所有无序玩家对，相交的两者进入击退并获得方向相反的强制目标。
// 三者以上重叠时按顺序逐对处理，同一玩家的目标以最后处理的一对为准。
func (r *Room) resolveCollisions() {
	ids := r.store.IDs()
	for i := 0; i < len(ids); i++ {
		a, ok := r.store.Get(ids[i])
		if !ok {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			b, ok := r.store.Get(ids[j])
			if !ok {
				continue
			}
			if !Intersects(a.Position, a.Radius, b.Position, b.Radius) {
				continue
			}
			r.safeStep("collision", a.ID, func() {
				resolvePair(a, b, r.cfg)
				r.metrics.IncCollisions()
			})
		}
	}
}

// resolvePair 分离方向由 B 指向 A；两者偏移量大小相等、方向相反
func resolvePair(a, b *Player, cfg Config) {
	a.Knockback = true
	b.Knockback = true

	angle := math.Atan2(b.Position.Y-a.Position.Y, b.Position.X-a.Position.X)
	sep := MoveTowardsPoint(angle, 1).Neg()

	a.Target = ClampToRect(a.Position.Add(sep.Scale(cfg.KnockbackMagnitude)),
		cfg.WorldWidth, cfg.WorldHeight, a.Radius)
	b.Target = ClampToRect(b.Position.Sub(sep.Scale(cfg.KnockbackMagnitude)),
		cfg.WorldWidth, cfg.WorldHeight, b.Radius)
}
