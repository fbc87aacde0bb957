package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoostDepletesToZeroAndStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoostDepleteRate = 1
	r, _ := newTestRoom(cfg)
	p, _ := join(t, r, "p1", Vec2{500, 500})
	p.Boost = 10

	r.OnInput(Intent{PlayerID: "p1", Kind: IntentBoostStart})
	r.ProcessInputs()
	require.True(t, p.Boosting)

	for i := 0; i < 9; i++ {
		r.Tick()
		require.True(t, p.Boosting, "still boosting after %d ticks", i+1)
	}
	r.Tick()
	assert.False(t, p.Boosting)
	assert.Equal(t, 0.0, p.Boost)
}

func TestBoostRegenClampedToMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBoost = 10
	cfg.BoostRegenRate = 3
	p := &Player{Boost: 9}
	updateBoost(p, cfg)
	assert.Equal(t, 10.0, p.Boost)
	updateBoost(p, cfg)
	assert.Equal(t, 10.0, p.Boost)
}

func TestBoostDepleteOvershootClampedToZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoostDepleteRate = 4
	p := &Player{Boost: 3, Boosting: true}
	updateBoost(p, cfg)
	assert.Equal(t, 0.0, p.Boost)
	assert.False(t, p.Boosting)
}

func TestBoostStartRequiresResource(t *testing.T) {
	p := &Player{Boost: 0}
	applyBoostStart(p)
	assert.False(t, p.Boosting)

	p.Boost = 0.5
	applyBoostStart(p)
	assert.True(t, p.Boosting)
}

func TestBoostStopIdempotent(t *testing.T) {
	p := &Player{Boost: 50, Boosting: true}
	applyBoostStop(p)
	assert.False(t, p.Boosting)
	applyBoostStop(p)
	assert.False(t, p.Boosting)
}

func TestHeartbeatTimeoutKicksOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHeartbeatInterval = 5 * time.Second
	r, clock := newTestRoom(cfg)
	_, staleConn := join(t, r, "stale", Vec2{100, 100})
	_, liveConn := join(t, r, "live", Vec2{900, 900})
	staleConn.reset()
	liveConn.reset()

	// 恰好等于上限时不踢
	clock.Advance(5 * time.Second)
	r.OnInput(Intent{PlayerID: "live", Kind: IntentHeartbeat})
	r.Tick()
	_, ok := r.store.Get("stale")
	require.True(t, ok)

	clock.Advance(time.Millisecond)
	r.OnInput(Intent{PlayerID: "live", Kind: IntentHeartbeat})
	r.Tick()

	_, ok = r.store.Get("stale")
	assert.False(t, ok, "stale player removed on the next tick")
	_, ok = r.store.Get("live")
	assert.True(t, ok)

	kicks := staleConn.ofType(t, EvKick)
	require.Len(t, kicks, 1)
	assert.JSONEq(t, `"`+KickReasonTimeout+`"`, string(kicks[0].Data))
	assert.True(t, staleConn.isClosed())
	assert.Empty(t, liveConn.ofType(t, EvKick), "kick goes to the kicked connection only")

	gone := liveConn.ofType(t, EvPlayerDisconnect)
	require.Len(t, gone, 1)
	assert.JSONEq(t, `"stale"`, string(gone[0].Data))

	clock.Advance(time.Second)
	r.OnInput(Intent{PlayerID: "live", Kind: IntentHeartbeat})
	r.Tick()
	assert.Len(t, staleConn.ofType(t, EvKick), 1)
	assert.EqualValues(t, 1, r.Metrics().Kicks)
}

func TestEveryIntentRenewsHeartbeat(t *testing.T) {
	r, clock := newTestRoom(DefaultConfig())
	p, _ := join(t, r, "p1", Vec2{100, 100})

	for _, kind := range []IntentKind{IntentMovement, IntentBoostStart, IntentBoostStop, IntentHeartbeat} {
		clock.Advance(time.Second)
		r.OnInput(Intent{PlayerID: "p1", Kind: kind, Target: Vec2{200, 200}})
		r.ProcessInputs()
		assert.Equal(t, clock.Now(), p.LastHeartbeat, "kind %s", kind)
	}
}
