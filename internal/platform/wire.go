package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Engine.io v3 framing over a websocket: each text frame starts with a
// packet-type digit, message packets ("4") nest a socket.io packet whose own
// leading digit distinguishes connect ("0") from event ("2"). An event
// payload is a JSON array of [name, argument].

type frameKind int

const (
	frameOpen frameKind = iota
	framePing
	framePong
	frameConnect
	frameEvent
	frameIgnore
)

type frame struct {
	kind  frameKind
	event string
	arg   json.RawMessage
}

// handshake is the payload of the engine.io open packet.
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // milliseconds
	PingTimeout  int    `json:"pingTimeout"`
}

var errEmptyFrame = errors.New("empty frame")

func parseFrame(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, errEmptyFrame
	}
	switch data[0] {
	case '0':
		return frame{kind: frameOpen, arg: json.RawMessage(data[1:])}, nil
	case '2':
		return frame{kind: framePing}, nil
	case '3':
		return frame{kind: framePong}, nil
	case '4':
		return parseSocketPacket(data[1:])
	default:
		// close, upgrade and noop packets carry nothing we act on
		return frame{kind: frameIgnore}, nil
	}
}

func parseSocketPacket(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{kind: frameIgnore}, nil
	}
	switch data[0] {
	case '0':
		return frame{kind: frameConnect}, nil
	case '2':
		var parts []json.RawMessage
		if err := json.Unmarshal(data[1:], &parts); err != nil {
			return frame{}, fmt.Errorf("decode event frame: %w", err)
		}
		if len(parts) == 0 {
			return frame{}, errors.New("event frame without a name")
		}
		var name string
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return frame{}, fmt.Errorf("decode event name: %w", err)
		}
		f := frame{kind: frameEvent, event: name}
		if len(parts) > 1 {
			f.arg = parts[1]
		}
		return f, nil
	default:
		return frame{kind: frameIgnore}, nil
	}
}

func parseHandshake(arg json.RawMessage) (handshake, error) {
	var h handshake
	if err := json.Unmarshal(arg, &h); err != nil {
		return handshake{}, fmt.Errorf("decode handshake: %w", err)
	}
	return h, nil
}

func (h handshake) pingEvery() time.Duration {
	if h.PingInterval <= 0 {
		return 25 * time.Second
	}
	return time.Duration(h.PingInterval) * time.Millisecond
}

func encodeEvent(name string, arg any) ([]byte, error) {
	body, err := json.Marshal([]any{name, arg})
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", name, err)
	}
	return append([]byte("42"), body...), nil
}

func pingMessage() []byte { return []byte("2") }
func pongMessage() []byte { return []byte("3") }
