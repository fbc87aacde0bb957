package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const adminTimeout = 2 * time.Second

// ConfigPatch 房间调参字段；GET 时全部填充，POST 时只更新非空字段
type ConfigPatch struct {
	WorldWidth             *float64 `json:"worldWidth,omitempty"`
	WorldHeight            *float64 `json:"worldHeight,omitempty"`
	SpeedPerTick           *float64 `json:"speedPerTick,omitempty"`
	KnockbackSpeedPerTick  *float64 `json:"knockbackSpeedPerTick,omitempty"`
	BoostMagnitude         *float64 `json:"boostMagnitude,omitempty"`
	MaxBoost               *float64 `json:"maxBoost,omitempty"`
	BoostDepleteRate       *float64 `json:"boostDepleteRate,omitempty"`
	BoostRegenRate         *float64 `json:"boostRegenRate,omitempty"`
	KnockbackMagnitude     *float64 `json:"knockbackMagnitude,omitempty"`
	MaxHeartbeatIntervalMs *int64   `json:"maxHeartbeatIntervalMs,omitempty"`
	ClientUpdateIntervalMs *int64   `json:"clientUpdateIntervalMs,omitempty"`
	TickRate               *int     `json:"tickRate,omitempty"`
	AngleOffset            *float64 `json:"angleOffset,omitempty"`
	RoundMovement          *bool    `json:"roundMovement,omitempty"`
	MaxInputsPerTick       *int     `json:"maxInputsPerTick,omitempty"`
	SimulateDelayMinMs     *int64   `json:"simulateDelayMinMs,omitempty"`
	SimulateDelayMaxMs     *int64   `json:"simulateDelayMaxMs,omitempty"`
	SimulateDropProb       *float64 `json:"simulateDropProb,omitempty"`
}

// PatchFromConfig 用当前配置填满所有字段
func PatchFromConfig(c Config) ConfigPatch {
	hb := c.MaxHeartbeatInterval.Milliseconds()
	upd := c.ClientUpdateInterval.Milliseconds()
	dmin := c.SimulateDelayMin.Milliseconds()
	dmax := c.SimulateDelayMax.Milliseconds()
	return ConfigPatch{
		WorldWidth:             &c.WorldWidth,
		WorldHeight:            &c.WorldHeight,
		SpeedPerTick:           &c.SpeedPerTick,
		KnockbackSpeedPerTick:  &c.KnockbackSpeedPerTick,
		BoostMagnitude:         &c.BoostMagnitude,
		MaxBoost:               &c.MaxBoost,
		BoostDepleteRate:       &c.BoostDepleteRate,
		BoostRegenRate:         &c.BoostRegenRate,
		KnockbackMagnitude:     &c.KnockbackMagnitude,
		MaxHeartbeatIntervalMs: &hb,
		ClientUpdateIntervalMs: &upd,
		TickRate:               &c.TickRate,
		AngleOffset:            &c.AngleOffset,
		RoundMovement:          &c.RoundMovement,
		MaxInputsPerTick:       &c.MaxInputsPerTick,
		SimulateDelayMinMs:     &dmin,
		SimulateDelayMaxMs:     &dmax,
		SimulateDropProb:       &c.SimulateDropProb,
	}
}

// Apply 返回应用补丁后的新配置，不修改 c
func (p ConfigPatch) Apply(c Config) Config {
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&c.WorldWidth, p.WorldWidth)
	setF(&c.WorldHeight, p.WorldHeight)
	setF(&c.SpeedPerTick, p.SpeedPerTick)
	setF(&c.KnockbackSpeedPerTick, p.KnockbackSpeedPerTick)
	setF(&c.BoostMagnitude, p.BoostMagnitude)
	setF(&c.MaxBoost, p.MaxBoost)
	setF(&c.BoostDepleteRate, p.BoostDepleteRate)
	setF(&c.BoostRegenRate, p.BoostRegenRate)
	setF(&c.KnockbackMagnitude, p.KnockbackMagnitude)
	setF(&c.AngleOffset, p.AngleOffset)
	setF(&c.SimulateDropProb, p.SimulateDropProb)
	if p.MaxHeartbeatIntervalMs != nil {
		c.MaxHeartbeatInterval = time.Duration(*p.MaxHeartbeatIntervalMs) * time.Millisecond
	}
	if p.ClientUpdateIntervalMs != nil {
		c.ClientUpdateInterval = time.Duration(*p.ClientUpdateIntervalMs) * time.Millisecond
	}
	if p.SimulateDelayMinMs != nil {
		c.SimulateDelayMin = time.Duration(*p.SimulateDelayMinMs) * time.Millisecond
	}
	if p.SimulateDelayMaxMs != nil {
		c.SimulateDelayMax = time.Duration(*p.SimulateDelayMaxMs) * time.Millisecond
	}
	if p.MaxInputsPerTick != nil {
		c.MaxInputsPerTick = *p.MaxInputsPerTick
	}
	if p.TickRate != nil {
		c.TickRate = *p.TickRate
	}
	if p.RoundMovement != nil {
		c.RoundMovement = *p.RoundMovement
	}
	return c
}

func roomParam(r *http.Request) string {
	if id := r.URL.Query().Get("room"); id != "" {
		return id
	}
	return DefaultRoomID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新调参）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(rm *RoomManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := roomParam(r)
		room, ok := rm.Room(roomID)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			cfg, err := room.Config(ctx)
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, PatchFromConfig(cfg))
		case http.MethodPost:
			var body ConfigPatch
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			cfg, err := room.UpdateConfig(ctx, body)
			if err != nil {
				Log.Warnw("config update rejected", "room", roomID, "err", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "config": PatchFromConfig(cfg)})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func HandleMetrics(rm *RoomManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := roomParam(r)
		room, ok := rm.Room(roomID)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"room":    roomID,
			"metrics": room.Metrics().Snapshot(),
		})
	}
}

// HandleRooms 列出所有房间及在线人数
func HandleRooms(rm *RoomManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rm.ListRooms())
	}
}
