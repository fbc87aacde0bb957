package server

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	codec Codec

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{codec: JSONCodec} }

func (f *fakeConn) Codec() Codec { return f.codec }

func (f *fakeConn) Enqueue(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// events 解码所有 JSON 帧
func (f *fakeConn) events(t *testing.T) []frame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]frame, 0, len(f.frames))
	for _, b := range f.frames {
		var fr frame
		require.NoError(t, json.Unmarshal(b, &fr))
		out = append(out, fr)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, typ string) []frame {
	t.Helper()
	var out []frame
	for _, fr := range f.events(t) {
		if fr.Type == typ {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestRoom 不启动 Run 协程，由测试直接驱动 Tick
func newTestRoom(cfg Config) (*Room, *testClock) {
	clock := newTestClock()
	r := NewRoom("test", cfg, WithClock(clock.Now), WithRand(rand.New(rand.NewSource(1))))
	return r, clock
}

// join 加入玩家并放到指定位置
func join(t *testing.T, r *Room, id PlayerID, pos Vec2) (*Player, *fakeConn) {
	t.Helper()
	fc := newFakeConn()
	r.handleJoin(id, fc)
	p, ok := r.store.Get(id)
	require.True(t, ok)
	p.Position = pos
	p.Target = pos
	return p, fc
}

func decodeState(t *testing.T, fr frame) PlayerState {
	t.Helper()
	var st PlayerState
	require.NoError(t, json.Unmarshal(fr.Data, &st))
	return st
}
