package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

const (
	commandQueueSize = 256 // 加入/离开/配置命令
	intentQueueSize  = 64  // 每个玩家独立的意图队列
)

// Conn 房间向连接推送消息所需的能力；ClientConn 与测试替身均实现
type Conn interface {
	Codec() Codec
	// Enqueue 非阻塞入队，队列满或已关闭时返回 false
	Enqueue(b []byte) bool
	// Close 在已入队消息写出后关闭连接；可重复调用
	Close()
}

// SnapshotObserver 广播后回调（调试用），不参与模拟
type SnapshotObserver func(roomID string, tick int64, players map[string]PlayerState)

// 入站命令：加入/离开/配置经同一通道进入房间协程；意图走各玩家自己的队列
type joinCmd struct {
	id   PlayerID
	conn Conn
}

type leaveCmd struct {
	id PlayerID
}

type configCmd struct {
	patch *ConfigPatch // nil 表示只读
	reply chan configReply
}

type configReply struct {
	cfg Config
	err error
}

// Room 房间世界：权威状态只由 Run 协程（或测试中的调用方）读写
type Room struct {
	ID string

	cfg   Config
	store *PlayerStore
	inbox chan any
	quit  chan struct{}

	// 每个连接一条有界意图队列：一个玩家刷屏只会挤掉自己的意图
	queuesMu deadlock.RWMutex
	queues   map[PlayerID]chan Intent
	sim      *netSim

	now func() time.Time
	rng *rand.Rand

	tickSeq  int64
	metrics  *RoomMetrics
	observer SnapshotObserver

	startOnce sync.Once
	stopOnce  sync.Once
}

// RoomOption 创建房间时的可选项
type RoomOption func(*Room)

// WithClock 替换时间源，测试中用于驱动心跳
func WithClock(now func() time.Time) RoomOption {
	return func(r *Room) { r.now = now }
}

// WithRand 替换出生点随机源
func WithRand(rng *rand.Rand) RoomOption {
	return func(r *Room) { r.rng = rng }
}

// WithObserver 挂接快照观察者
func WithObserver(o SnapshotObserver) RoomOption {
	return func(r *Room) { r.observer = o }
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, cfg Config, opts ...RoomOption) *Room {
	r := &Room{
		ID:      id,
		cfg:     cfg,
		store:   NewPlayerStore(),
		inbox:   make(chan any, commandQueueSize),
		quit:    make(chan struct{}),
		queues:  make(map[PlayerID]chan Intent),
		sim:     newNetSim(cfg),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics: &RoomMetrics{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// RequestJoin 请求在房间协程中加入玩家（阻塞写入，保证不丢）。
// 意图队列在此先行建立，加入命令生效前到达的意图不会被当作过期丢弃
func (r *Room) RequestJoin(id PlayerID, conn Conn) {
	r.ensureQueue(id)
	select {
	case r.inbox <- joinCmd{id: id, conn: conn}:
	case <-r.quit:
		r.dropQueue(id)
		conn.Close()
	}
}

// RequestLeave 请求在房间协程中移除玩家，避免并发改动房间状态
func (r *Room) RequestLeave(id PlayerID) {
	select {
	case r.inbox <- leaveCmd{id: id}:
	case <-r.quit:
	}
}

// OnInput 入站意图（不立即改变状态），等下一次 Tick 处理
func (r *Room) OnInput(in Intent) {
	drop, delay := r.sim.roll()
	switch {
	case drop:
		r.metrics.IncDropsSimulated()
	case delay > 0:
		time.AfterFunc(delay, func() { r.enqueueIntent(in) })
	default:
		r.enqueueIntent(in)
	}
}

// enqueueIntent 写入该玩家自己的队列；不阻塞，队列满时只丢弃该玩家的意图
func (r *Room) enqueueIntent(in Intent) {
	r.queuesMu.RLock()
	q, ok := r.queues[in.PlayerID]
	r.queuesMu.RUnlock()
	if !ok {
		r.metrics.IncStaleIgnored()
		return
	}
	select {
	case q <- in:
	default:
		r.metrics.IncQueueFull()
	}
}

func (r *Room) ensureQueue(id PlayerID) chan Intent {
	r.queuesMu.Lock()
	defer r.queuesMu.Unlock()
	q, ok := r.queues[id]
	if !ok {
		q = make(chan Intent, intentQueueSize)
		r.queues[id] = q
	}
	return q
}

func (r *Room) queueOf(id PlayerID) chan Intent {
	r.queuesMu.RLock()
	defer r.queuesMu.RUnlock()
	return r.queues[id]
}

// dropQueue 注销队列并返回其中尚未处理的意图数；队列本身不关闭，迟到的写入直接被回收
func (r *Room) dropQueue(id PlayerID) int {
	r.queuesMu.Lock()
	defer r.queuesMu.Unlock()
	q, ok := r.queues[id]
	if !ok {
		return 0
	}
	delete(r.queues, id)
	return len(q)
}

// Config 读取房间当前配置（经房间协程）
func (r *Room) Config(ctx context.Context) (Config, error) {
	return r.requestConfig(ctx, nil)
}

// UpdateConfig 热更新调参字段，返回更新后的配置
func (r *Room) UpdateConfig(ctx context.Context, patch ConfigPatch) (Config, error) {
	return r.requestConfig(ctx, &patch)
}

func (r *Room) requestConfig(ctx context.Context, patch *ConfigPatch) (Config, error) {
	cmd := configCmd{patch: patch, reply: make(chan configReply, 1)}
	select {
	case r.inbox <- cmd:
	case <-r.quit:
		return Config{}, errors.Errorf("room %s stopped", r.ID)
	case <-ctx.Done():
		return Config{}, errors.Wrap(ctx.Err(), "enqueue config request")
	}
	select {
	case rep := <-cmd.reply:
		return rep.cfg, rep.err
	case <-r.quit:
		return Config{}, errors.Errorf("room %s stopped", r.ID)
	case <-ctx.Done():
		return Config{}, errors.Wrap(ctx.Err(), "await config reply")
	}
}

// ProcessInputs 先处理加入/离开/配置命令，再逐个玩家 drain 意图队列（均不阻塞）
func (r *Room) ProcessInputs() {
	r.drainCommands()
	r.store.Each(r.drainIntents)
}

func (r *Room) drainCommands() {
	for {
		select {
		case cmd := <-r.inbox:
			r.handleCommand(cmd)
		default:
			return
		}
	}
}

// drainIntents 每个玩家每 Tick 最多应用 MaxInputsPerTick 条意图，超出部分计入限流；
// 只取本次进入时已排队的条数，读协程持续写入也不会拖住 Tick
func (r *Room) drainIntents(p *Player) {
	q := r.queueOf(p.ID)
	if q == nil {
		return
	}
	applied := 0
	for n := len(q); n > 0; n-- {
		in := <-q
		if applied >= r.cfg.MaxInputsPerTick && !in.Kind.exemptFromRateLimit() {
			r.metrics.IncRateLimited()
			continue
		}
		if r.applyIntent(in) {
			applied++
		}
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		r.handleJoin(c.id, c.conn)
	case leaveCmd:
		r.removePlayer(c.id, "disconnect")
	case configCmd:
		c.reply <- r.handleConfig(c.patch)
	default:
		Log.Warnw("unknown room command", "room", r.ID, "cmd", cmd)
	}
}

func (r *Room) handleConfig(patch *ConfigPatch) configReply {
	if patch == nil {
		return configReply{cfg: r.cfg}
	}
	next := patch.Apply(r.cfg)
	if err := next.Validate(); err != nil {
		return configReply{cfg: r.cfg, err: err}
	}
	r.cfg = next
	r.sim.set(next)
	Log.Infow("config updated", "room", r.ID, "config", r.cfg)
	return configReply{cfg: r.cfg}
}

// handleJoin 出生点随机、满能量、零速度；先给新连接下发全量，再通知其他人
func (r *Room) handleJoin(id PlayerID, conn Conn) {
	if _, exists := r.store.Get(id); exists {
		Log.Warnw("duplicate join ignored", "room", r.ID, "player", id)
		return
	}
	r.ensureQueue(id)
	spawn := r.randomSpawn()
	p := &Player{
		ID:            id,
		Position:      spawn,
		Radius:        r.cfg.PlayerRadius,
		Target:        spawn,
		Boost:         r.cfg.MaxBoost,
		LastHeartbeat: r.now(),
		Conn:          conn,
	}
	r.store.Insert(p)
	r.metrics.SetPlayers(r.store.Len())

	r.sendTo(conn, EvConfig, WorldConfig{WorldWidth: r.cfg.WorldWidth, WorldHeight: r.cfg.WorldHeight})
	r.sendTo(conn, EvNewPlayer, p.State())
	r.sendTo(conn, EvCurrentPlayers, r.store.Snapshot())
	r.broadcast(EvNewEnemyPlayer, p.State(), id)

	Log.Infow("player joined", "room", r.ID, "player", id,
		"x", spawn.X, "y", spawn.Y, "players", r.store.Len())
}

func (r *Room) randomSpawn() Vec2 {
	rad := r.cfg.PlayerRadius
	return Vec2{
		X: rad + r.rng.Float64()*(r.cfg.WorldWidth-2*rad),
		Y: rad + r.rng.Float64()*(r.cfg.WorldHeight-2*rad),
	}
}

// removePlayer 主动断开与踢出共用的清理路径；玩家不存在时为 no-op
func (r *Room) removePlayer(id PlayerID, reason string) {
	p, ok := r.store.Remove(id)
	if !ok {
		r.dropQueue(id)
		return
	}
	if pending := r.dropQueue(id); pending > 0 {
		Log.Debugw("discarded pending intents", "room", r.ID, "player", id, "count", pending)
	}
	if p.Conn != nil {
		p.Conn.Close()
	}
	r.metrics.SetPlayers(r.store.Len())
	r.broadcast(EvPlayerDisconnect, string(id), "")
	Log.Infow("player left", "room", r.ID, "player", id, "reason", reason, "players", r.store.Len())
}

// kick 只向被踢连接发送 kick，然后走断开清理路径
func (r *Room) kick(p *Player, reason string) {
	if p.Conn != nil {
		r.sendTo(p.Conn, EvKick, reason)
	}
	r.metrics.IncKicks()
	r.removePlayer(p.ID, reason)
}

func (r *Room) sendTo(c Conn, event string, payload any) {
	if c == nil {
		return
	}
	b, err := c.Codec().Encode(event, payload)
	if err != nil {
		Log.Errorw("encode failed", "room", r.ID, "event", event, "err", err)
		return
	}
	c.Enqueue(b)
}

// broadcast 发送给所有连接（except 为空表示不排除）
func (r *Room) broadcast(event string, payload any, except PlayerID) {
	fc := newFrameCache(event, payload)
	r.store.Each(func(p *Player) {
		if p.ID == except || p.Conn == nil {
			return
		}
		b, err := fc.get(p.Conn.Codec())
		if err != nil {
			Log.Errorw("encode failed", "room", r.ID, "event", event, "err", err)
			return
		}
		p.Conn.Enqueue(b)
	})
}

// safeStep 隔离单个玩家的步骤：panic 记录后跳过，不影响其他玩家
func (r *Room) safeStep(phase string, id PlayerID, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.IncStepPanics()
			Log.Errorw("player step panicked", "room", r.ID, "phase", phase, "player", id, "panic", rec)
		}
	}()
	fn()
}
