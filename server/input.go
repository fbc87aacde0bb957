package server

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// IntentKind 客户端意图类型
type IntentKind int

const (
	IntentMovement IntentKind = iota + 1
	IntentBoostStart
	IntentBoostStop
	IntentHeartbeat
)

func (k IntentKind) String() string {
	switch k {
	case IntentMovement:
		return MsgMovement
	case IntentBoostStart:
		return MsgBoost
	case IntentBoostStop:
		return MsgBoostStop
	case IntentHeartbeat:
		return MsgHeartbeat
	}
	return "unknown"
}

// Intent 客户端输入（意图），由房间协程解释并驱动世界状态
type Intent struct {
	PlayerID PlayerID
	Kind     IntentKind
	Target   Vec2  // 仅 IntentMovement 使用
	Seq      int64 // 客户端本地序列号，0 表示不参与去重
}

// InputMessage 入站消息结构
// 示例：{"type":"movement","x":120.5,"y":80,"seq":42}
type InputMessage struct {
	Type string   `json:"type" msgpack:"type"`
	X    *float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Y    *float64 `json:"y,omitempty" msgpack:"y,omitempty"`
	Seq  int64    `json:"seq,omitempty" msgpack:"seq,omitempty"`
}

var (
	errUnknownType = errors.New("unknown message type")
	errBadPayload  = errors.New("malformed payload")
)

// DecodeInput 解析一帧入站数据；binary 为 true 时按 msgpack 解码
func DecodeInput(pid PlayerID, payload []byte, binary bool) (Intent, error) {
	var im InputMessage
	var err error
	if binary {
		err = msgpack.Unmarshal(payload, &im)
	} else {
		err = json.Unmarshal(payload, &im)
	}
	if err != nil {
		return Intent{}, errors.Wrap(errBadPayload, err.Error())
	}
	return im.Intent(pid)
}

// Intent 将消息转换为意图；movement 缺少坐标或坐标非有限值时报错
func (im InputMessage) Intent(pid PlayerID) (Intent, error) {
	in := Intent{PlayerID: pid, Seq: im.Seq}
	switch strings.ToLower(im.Type) {
	case strings.ToLower(MsgMovement):
		if im.X == nil || im.Y == nil {
			return in, errors.Wrap(errBadPayload, "movement without x/y")
		}
		if !isFinite(*im.X) || !isFinite(*im.Y) {
			return in, errors.Wrap(errBadPayload, "movement with non-finite coordinate")
		}
		in.Kind = IntentMovement
		in.Target = Vec2{X: *im.X, Y: *im.Y}
	case strings.ToLower(MsgBoost):
		in.Kind = IntentBoostStart
	case strings.ToLower(MsgBoostStop):
		in.Kind = IntentBoostStop
	case strings.ToLower(MsgHeartbeat):
		in.Kind = IntentHeartbeat
	default:
		return in, errors.Wrapf(errUnknownType, "%q", im.Type)
	}
	return in, nil
}

// exemptFromRateLimit 能量开关不受同帧限流影响，避免限流后冲刺状态卡住
func (k IntentKind) exemptFromRateLimit() bool {
	return k == IntentBoostStart || k == IntentBoostStop
}
