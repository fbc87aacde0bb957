package server

import "time"

// UpdateWorld 单个 Tick 内的固定顺序：心跳 → 能量 → 运动 → 碰撞。
// 碰撞结果作为下一 Tick 的强制目标，不回溯修改本 Tick 的位置。
func (r *Room) UpdateWorld(now time.Time) {
	r.tickSeq++
	r.checkLiveness(now)
	r.store.Each(func(p *Player) {
		r.safeStep("boost", p.ID, func() { updateBoost(p, r.cfg) })
	})
	r.store.Each(func(p *Player) {
		r.safeStep("motion", p.ID, func() { integrate(p, r.cfg) })
	})
	r.resolveCollisions()
}

// Tick 处理输入 → 更新世界；测试中可直接调用
func (r *Room) Tick() {
	start := time.Now()
	r.ProcessInputs()
	r.UpdateWorld(r.now())
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// StartTicker 启动房间循环；重复调用无效
func (r *Room) StartTicker() {
	r.startOnce.Do(func() { go r.Run() })
}

// Stop 结束房间循环；重复调用无效
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Run 房间协程：模拟 Tick 与快照广播各自独立计时，均在此协程串行执行
func (r *Room) Run() {
	tickEvery := r.cfg.TickInterval()
	sendEvery := r.cfg.ClientUpdateInterval
	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()
	sender := time.NewTicker(sendEvery)
	defer sender.Stop()

	Log.Infow("room started", "room", r.ID, "tick", tickEvery.String(), "broadcast", sendEvery.String())
	for {
		select {
		case <-r.quit:
			r.shutdown()
			return
		case <-ticker.C:
			r.Tick()
			// 配置热更新后调整计时器
			if d := r.cfg.TickInterval(); d != tickEvery {
				tickEvery = d
				ticker.Reset(d)
			}
			if d := r.cfg.ClientUpdateInterval; d != sendEvery {
				sendEvery = d
				sender.Reset(d)
			}
		case <-sender.C:
			r.BroadcastSnapshot()
		}
	}
}

// shutdown 关闭所有连接；房间停止后不再广播
func (r *Room) shutdown() {
	r.store.Each(func(p *Player) {
		if p.Conn != nil {
			p.Conn.Close()
		}
		r.store.Remove(p.ID)
		r.dropQueue(p.ID)
	})
	r.metrics.SetPlayers(0)
	Log.Infow("room stopped", "room", r.ID, "ticks", r.tickSeq)
}
