package server

// 出站事件
const (
	EvCurrentPlayers   = "currentPlayers"
	EvNewPlayer        = "newPlayer"
	EvNewEnemyPlayer   = "newEnemyPlayer"
	EvPlayerMoved      = "playerMoved"
	EvPlayerDisconnect = "playerDisconnect"
	EvKick             = "kick"
	EvConfig           = "config"
)

// 入站意图
const (
	MsgMovement  = "movement"
	MsgBoost     = "boost"
	MsgBoostStop = "boostStop"
	MsgHeartbeat = "heartbeat"
)

// KickReasonTimeout 心跳超时踢出时发送给客户端的原因
const KickReasonTimeout = "heartbeat timeout"

// Envelope 出站消息外壳：{"type":"playerMoved","data":{...}}
type Envelope struct {
	Type string `json:"type" msgpack:"type"`
	Data any    `json:"data" msgpack:"data"`
}

// WorldConfig 连接建立时下发的世界尺寸
type WorldConfig struct {
	WorldWidth  float64 `json:"worldWidth" msgpack:"worldWidth"`
	WorldHeight float64 `json:"worldHeight" msgpack:"worldHeight"`
}
