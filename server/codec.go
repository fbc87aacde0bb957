package server

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec 出站消息编码方式，连接建立时由客户端选择
type Codec interface {
	Name() string
	FrameType() int // websocket.TextMessage / websocket.BinaryMessage
	Encode(event string, payload any) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }
func (jsonCodec) Encode(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, errors.New("encode: empty event type")
	}
	b, err := json.Marshal(Envelope{Type: event, Data: payload})
	return b, errors.Wrapf(err, "encode %s", event)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }
func (msgpackCodec) Encode(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, errors.New("encode: empty event type")
	}
	b, err := msgpack.Marshal(&Envelope{Type: event, Data: payload})
	return b, errors.Wrapf(err, "encode %s", event)
}

var (
	JSONCodec    Codec = jsonCodec{}
	MsgpackCodec Codec = msgpackCodec{}
)

// CodecByName 未知名称回退为 JSON
func CodecByName(name string) Codec {
	if name == MsgpackCodec.Name() {
		return MsgpackCodec
	}
	return JSONCodec
}

// frameCache 同一事件按编码方式只编码一次
type frameCache struct {
	event   string
	payload any
	frames  map[string][]byte
}

func newFrameCache(event string, payload any) *frameCache {
	return &frameCache{event: event, payload: payload, frames: make(map[string][]byte, 2)}
}

func (fc *frameCache) get(c Codec) ([]byte, error) {
	if b, ok := fc.frames[c.Name()]; ok {
		return b, nil
	}
	b, err := c.Encode(fc.event, fc.payload)
	if err != nil {
		return nil, err
	}
	fc.frames[c.Name()] = b
	return b, nil
}
