package server

// BroadcastSnapshot 按广播节奏为每个玩家发送一条 playerMoved，所有连接都能看到全部玩家
func (r *Room) BroadcastSnapshot() {
	if r.store.Len() == 0 {
		return
	}
	var snapshot map[string]PlayerState
	if r.observer != nil {
		snapshot = make(map[string]PlayerState, r.store.Len())
	}
	r.store.Each(func(p *Player) {
		st := p.State()
		r.broadcast(EvPlayerMoved, st, "")
		if snapshot != nil {
			snapshot[st.ID] = st
		}
	})
	r.metrics.IncBroadcasts()
	if r.observer != nil {
		r.observer(r.ID, r.tickSeq, snapshot)
	}
}

// DebugObserver 以 debug 级别记录每次广播的快照
func DebugObserver() SnapshotObserver {
	return func(roomID string, tick int64, players map[string]PlayerState) {
		for id, st := range players {
			Log.Debugw("snapshot", "room", roomID, "tick", tick, "player", id,
				"x", st.Position.X, "y", st.Position.Y, "vx", st.Velocity.X, "vy", st.Velocity.Y,
				"angle", st.Angle, "boost", st.Boost, "boosting", st.Boosting, "knockback", st.Knockback)
		}
	}
}
