package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collisionConfig() Config {
	cfg := DefaultConfig()
	cfg.PlayerRadius = 16
	cfg.KnockbackMagnitude = 100
	return cfg
}

func TestResolveCollisionsScenario(t *testing.T) {
	r, _ := newTestRoom(collisionConfig())
	a, _ := join(t, r, "a", Vec2{500, 500})
	b, _ := join(t, r, "b", Vec2{520, 500})

	r.resolveCollisions()

	assert.True(t, a.Knockback)
	assert.True(t, b.Knockback)
	assert.InDelta(t, 400, a.Target.X, 1e-9)
	assert.InDelta(t, 500, a.Target.Y, 1e-9)
	assert.InDelta(t, 620, b.Target.X, 1e-9)
	assert.InDelta(t, 500, b.Target.Y, 1e-9)
	assert.EqualValues(t, 1, r.Metrics().Collisions)
}

func TestResolvePairSymmetric(t *testing.T) {
	cfg := collisionConfig()
	a := &Player{ID: "a", Position: Vec2{700, 650}, Radius: 16}
	b := &Player{ID: "b", Position: Vec2{712, 671}, Radius: 16}
	require.True(t, Intersects(a.Position, a.Radius, b.Position, b.Radius))

	resolvePair(a, b, cfg)

	offA := a.Target.Sub(a.Position)
	offB := b.Target.Sub(b.Position)
	assert.InDelta(t, cfg.KnockbackMagnitude, offA.Len(), 1e-9)
	assert.InDelta(t, cfg.KnockbackMagnitude, offB.Len(), 1e-9)
	assert.InDelta(t, 0, offA.X+offB.X, 1e-9)
	assert.InDelta(t, 0, offA.Y+offB.Y, 1e-9)
	// A 被推离 B
	ab := b.Position.Sub(a.Position)
	assert.Less(t, offA.X*ab.X+offA.Y*ab.Y, 0.0)
}

func TestResolveCollisionsIgnoresSeparatedPlayers(t *testing.T) {
	r, _ := newTestRoom(collisionConfig())
	a, _ := join(t, r, "a", Vec2{500, 500})
	b, _ := join(t, r, "b", Vec2{533, 500})

	r.resolveCollisions()

	assert.False(t, a.Knockback)
	assert.False(t, b.Knockback)
	assert.Equal(t, Vec2{500, 500}, a.Target)
}

func TestKnockbackTargetsClampedInsideWalls(t *testing.T) {
	cfg := collisionConfig()
	a := &Player{ID: "a", Position: Vec2{20, 1000}, Radius: 16}
	b := &Player{ID: "b", Position: Vec2{40, 1000}, Radius: 16}
	resolvePair(a, b, cfg)

	assert.Equal(t, Vec2{16, 1000}, a.Target)
	assert.InDelta(t, 140, b.Target.X, 1e-9)
}

func TestResolveCollisionsThreeWayLaterPairWins(t *testing.T) {
	r, _ := newTestRoom(collisionConfig())
	a, _ := join(t, r, "a", Vec2{500, 500})
	b, _ := join(t, r, "b", Vec2{520, 500})
	c, _ := join(t, r, "c", Vec2{510, 515})

	r.resolveCollisions()

	for _, p := range []*Player{a, b, c} {
		assert.True(t, p.Knockback, "player %s", p.ID)
	}
	// 处理顺序 (a,b) (a,c) (b,c)：b 的目标来自最后一对 (b,c)
	expectB := &Player{ID: "b", Position: b.Position, Radius: 16}
	expectC := &Player{ID: "c", Position: c.Position, Radius: 16}
	resolvePair(expectB, expectC, r.cfg)
	assert.Equal(t, expectB.Target, b.Target)
	assert.Equal(t, expectC.Target, c.Target)
	assert.EqualValues(t, 3, r.Metrics().Collisions)
}

func TestCollisionThenRecoveryThroughTicks(t *testing.T) {
	cfg := collisionConfig()
	cfg.KnockbackSpeedPerTick = 10
	r, _ := newTestRoom(cfg)
	a, _ := join(t, r, "a", Vec2{500, 500})
	b, _ := join(t, r, "b", Vec2{520, 500})

	r.resolveCollisions()
	for i := 0; i < 10; i++ {
		r.Tick()
	}
	assert.False(t, a.Knockback)
	assert.False(t, b.Knockback)
	assert.Equal(t, Vec2{400, 500}, a.Position)
	assert.Equal(t, Vec2{620, 500}, b.Position)
}
