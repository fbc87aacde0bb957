package server

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestJoinHandshake(t *testing.T) {
	cfg := DefaultConfig()
	r, clock := newTestRoom(cfg)

	fc1 := newFakeConn()
	r.RequestJoin("p1", fc1)
	r.ProcessInputs()

	evs := fc1.events(t)
	require.Len(t, evs, 3)
	assert.Equal(t, []string{EvConfig, EvNewPlayer, EvCurrentPlayers}, []string{evs[0].Type, evs[1].Type, evs[2].Type})

	var wc WorldConfig
	require.NoError(t, json.Unmarshal(evs[0].Data, &wc))
	assert.Equal(t, WorldConfig{WorldWidth: cfg.WorldWidth, WorldHeight: cfg.WorldHeight}, wc)

	self := decodeState(t, evs[1])
	assert.Equal(t, "p1", self.ID)
	assert.Equal(t, cfg.MaxBoost, self.Boost)
	assert.Equal(t, Vec2{}, self.Velocity)
	assert.GreaterOrEqual(t, self.Position.X, 0.0)
	assert.LessOrEqual(t, self.Position.X, cfg.WorldWidth)

	p, ok := r.store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), p.LastHeartbeat)

	fc2 := newFakeConn()
	r.RequestJoin("p2", fc2)
	r.ProcessInputs()

	enemy := fc1.ofType(t, EvNewEnemyPlayer)
	require.Len(t, enemy, 1)
	assert.Equal(t, "p2", decodeState(t, enemy[0]).ID)
	assert.Empty(t, fc2.ofType(t, EvNewEnemyPlayer))

	cur := fc2.ofType(t, EvCurrentPlayers)
	require.Len(t, cur, 1)
	var all map[string]PlayerState
	require.NoError(t, json.Unmarshal(cur[0].Data, &all))
	assert.Contains(t, all, "p1")
	assert.Contains(t, all, "p2")
	assert.EqualValues(t, 2, r.Metrics().PlayerCount())
}

func TestMovementSetsTargetAndAngle(t *testing.T) {
	r, _ := newTestRoom(DefaultConfig())
	p, _ := join(t, r, "p1", Vec2{100, 100})

	r.OnInput(Intent{PlayerID: "p1", Kind: IntentMovement, Target: Vec2{300, 400.5}})
	r.ProcessInputs()

	assert.Equal(t, Vec2{300, 400.5}, p.Target)
	assert.InDelta(t, ToDegrees(math.Atan2(300.5, 200)), p.Angle, 1e-9)
}

func TestMovementRoundingAndClamping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RoundMovement = true
	cfg.AngleOffset = 90
	r, _ := newTestRoom(cfg)
	p, _ := join(t, r, "p1", Vec2{100, 100})

	r.OnInput(Intent{PlayerID: "p1", Kind: IntentMovement, Target: Vec2{200.4, 99.6}})
	r.ProcessInputs()
	assert.Equal(t, Vec2{200, 100}, p.Target)
	assert.InDelta(t, 90, p.Angle, 1e-9)

	r.OnInput(Intent{PlayerID: "p1", Kind: IntentMovement, Target: Vec2{-40, 1e9}})
	r.ProcessInputs()
	assert.Equal(t, Vec2{0, cfg.WorldHeight}, p.Target)

	before := p.Target
	r.OnInput(Intent{PlayerID: "p1", Kind: IntentMovement, Target: Vec2{math.NaN(), 3}})
	r.ProcessInputs()
	assert.Equal(t, before, p.Target)
}

func TestMovementIgnoredDuringKnockback(t *testing.T) {
	r, clock := newTestRoom(DefaultConfig())
	p, _ := join(t, r, "p1", Vec2{500, 500})
	p.Knockback = true
	p.Target = Vec2{400, 500}
	p.Angle = 12

	clock.Advance(time.Second)
	r.OnInput(Intent{PlayerID: "p1", Kind: IntentMovement, Target: Vec2{900, 900}})
	r.ProcessInputs()

	assert.Equal(t, Vec2{400, 500}, p.Target)
	assert.Equal(t, 12.0, p.Angle)
	assert.Equal(t, clock.Now(), p.LastHeartbeat)
}

func TestIntentsForMissingPlayerAreNoOps(t *testing.T) {
	r, _ := newTestRoom(DefaultConfig())
	_, fc := join(t, r, "p1", Vec2{500, 500})
	fc.reset()

	assert.NotPanics(t, func() {
		r.OnInput(Intent{PlayerID: "ghost", Kind: IntentMovement, Target: Vec2{1, 1}})
		r.OnInput(Intent{PlayerID: "ghost", Kind: IntentBoostStart})
		r.RequestLeave("ghost")
		r.Tick()
	})
	assert.EqualValues(t, 2, r.Metrics().StaleIgnored)
	assert.Empty(t, fc.ofType(t, EvPlayerDisconnect))
}

func TestLeaveBroadcastsDisconnect(t *testing.T) {
	r, _ := newTestRoom(DefaultConfig())
	_, fc1 := join(t, r, "p1", Vec2{100, 100})
	_, fc2 := join(t, r, "p2", Vec2{900, 900})

	r.RequestLeave("p1")
	r.ProcessInputs()

	_, ok := r.store.Get("p1")
	assert.False(t, ok)
	assert.True(t, fc1.isClosed())
	gone := fc2.ofType(t, EvPlayerDisconnect)
	require.Len(t, gone, 1)
	assert.JSONEq(t, `"p1"`, string(gone[0].Data))
	assert.EqualValues(t, 1, r.Metrics().PlayerCount())

	// 重复离开不再广播
	r.RequestLeave("p1")
	r.ProcessInputs()
	assert.Len(t, fc2.ofType(t, EvPlayerDisconnect), 1)
}

func TestBroadcastSnapshotSendsEveryPlayerToEveryConnection(t *testing.T) {
	var observed map[string]PlayerState
	clock := newTestClock()
	r := NewRoom("test", DefaultConfig(), WithClock(clock.Now),
		WithObserver(func(roomID string, tick int64, players map[string]PlayerState) {
			assert.Equal(t, "test", roomID)
			observed = players
		}))
	_, fc1 := join(t, r, "p1", Vec2{100, 100})
	_, fc2 := join(t, r, "p2", Vec2{900, 900})
	p3 := &fakeConn{codec: MsgpackCodec}
	r.handleJoin("p3", p3)
	fc1.reset()
	fc2.reset()

	r.BroadcastSnapshot()

	for _, fc := range []*fakeConn{fc1, fc2} {
		moved := fc.ofType(t, EvPlayerMoved)
		require.Len(t, moved, 3)
		ids := map[string]bool{}
		for _, fr := range moved {
			ids[decodeState(t, fr).ID] = true
		}
		assert.Equal(t, map[string]bool{"p1": true, "p2": true, "p3": true}, ids)
	}

	p3.mu.Lock()
	last := p3.frames[len(p3.frames)-1]
	p3.mu.Unlock()
	var env struct {
		Type string      `msgpack:"type"`
		Data PlayerState `msgpack:"data"`
	}
	require.NoError(t, msgpack.Unmarshal(last, &env))
	assert.Equal(t, EvPlayerMoved, env.Type)
	assert.Equal(t, "p3", env.Data.ID)

	require.Len(t, observed, 3)
	assert.Equal(t, Vec2{900, 900}, observed["p2"].Position)
	assert.EqualValues(t, 1, r.Metrics().Broadcasts)
}

func TestSafeStepIsolatesPanics(t *testing.T) {
	r, _ := newTestRoom(DefaultConfig())
	ran := false
	assert.NotPanics(t, func() {
		r.safeStep("motion", "bad", func() { panic("boom") })
		r.safeStep("motion", "good", func() { ran = true })
	})
	assert.True(t, ran)
	assert.EqualValues(t, 1, r.Metrics().StepPanics)
}

func TestTickInvariantsHold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorldWidth = 400
	cfg.WorldHeight = 300
	cfg.BoostDepleteRate = 3
	cfg.BoostRegenRate = 0.7
	r, clock := newTestRoom(cfg)
	rng := rand.New(rand.NewSource(42))

	ids := []PlayerID{"a", "b", "c", "d", "e", "f"}
	for _, id := range ids {
		r.RequestJoin(id, newFakeConn())
	}
	r.ProcessInputs()

	for tick := 0; tick < 600; tick++ {
		clock.Advance(cfg.TickInterval())
		for _, id := range ids {
			switch rng.Intn(4) {
			case 0:
				r.OnInput(Intent{PlayerID: id, Kind: IntentMovement,
					Target: Vec2{rng.Float64()*600 - 100, rng.Float64()*500 - 100}})
			case 1:
				r.OnInput(Intent{PlayerID: id, Kind: IntentBoostStart})
			case 2:
				r.OnInput(Intent{PlayerID: id, Kind: IntentBoostStop})
			default:
				r.OnInput(Intent{PlayerID: id, Kind: IntentHeartbeat})
			}
		}
		r.Tick()

		require.Equal(t, len(ids), r.store.Len())
		r.store.Each(func(p *Player) {
			require.GreaterOrEqual(t, p.Boost, 0.0)
			require.LessOrEqual(t, p.Boost, cfg.MaxBoost)
			require.GreaterOrEqual(t, p.Position.X, 0.0)
			require.LessOrEqual(t, p.Position.X, cfg.WorldWidth)
			require.GreaterOrEqual(t, p.Position.Y, 0.0)
			require.LessOrEqual(t, p.Position.Y, cfg.WorldHeight)
			if p.Boosting {
				require.Greater(t, p.Boost, 0.0)
			}
		})
	}
	assert.EqualValues(t, 600, r.tickSeq)
}
