package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Socket is the bot's event connection to the chat platform: a socket.io
// session over a single websocket. Inbound frames are decoded and dispatched
// to the Handler; outbound chat messages go through Emit.
type Socket struct {
	url     string
	header  http.Header
	handler Handler
	log     zerolog.Logger

	wmu      sync.Mutex
	conn     *websocket.Conn
	closed   atomic.Bool
	stopPing chan struct{}
}

// DialSocket connects and performs the engine.io handshake. Run must be
// called afterwards to start the read loop.
func DialSocket(ctx context.Context, baseURL, token, botUserID string, h Handler, log zerolog.Logger) (*Socket, error) {
	wsURL, err := socketURL(baseURL)
	if err != nil {
		return nil, err
	}
	s := &Socket{
		url:     wsURL,
		header:  http.Header{"Authorization": {"Bearer " + token}, "User": {botUserID}},
		handler: h,
		log:     log,
	}
	conn, err := s.dialAndSetup(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func socketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse platform url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported platform url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = "EIO=3&transport=websocket"
	return u.String(), nil
}

func (s *Socket) dialAndSetup(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

// Run reads frames until the context is cancelled or Close is called,
// reconnecting with backoff on network errors.
func (s *Socket) Run(ctx context.Context) {
	defer s.closeConn()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	backoff := time.Second
	for {
		_, data, err := s.readMessage()
		if err == nil {
			if herr := s.handleFrame(ctx, data); herr != nil {
				s.log.Warn().Err(herr).Msg("bad frame dropped")
			}
			backoff = time.Second
			continue
		}
		if s.closed.Load() {
			return
		}
		s.log.Warn().Err(err).Msg("socket read failed, reconnecting")
		s.closeConn()

		for !s.closed.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			conn, derr := s.dialAndSetup(ctx)
			if derr != nil {
				s.log.Warn().Err(derr).Dur("backoff", backoff).Msg("reconnect failed")
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			s.wmu.Lock()
			s.conn = conn
			s.wmu.Unlock()
			s.log.Info().Msg("socket reconnected")
			backoff = time.Second
			break
		}
		if s.closed.Load() {
			return
		}
	}
}

func (s *Socket) readMessage() (int, []byte, error) {
	s.wmu.Lock()
	conn := s.conn
	s.wmu.Unlock()
	if conn == nil {
		return 0, nil, fmt.Errorf("no connection")
	}
	return conn.ReadMessage()
}

func (s *Socket) handleFrame(ctx context.Context, data []byte) error {
	f, err := parseFrame(data)
	if err != nil {
		return err
	}
	switch f.kind {
	case frameOpen:
		h, err := parseHandshake(f.arg)
		if err != nil {
			return err
		}
		s.startPing(h.pingEvery())
	case framePing:
		return s.write(pongMessage())
	case frameEvent:
		s.dispatch(ctx, f)
	}
	return nil
}

func (s *Socket) dispatch(ctx context.Context, f frame) {
	switch f.event {
	case "new_task_room":
		var ev RoomCreated
		if err := json.Unmarshal(f.arg, &ev); err != nil {
			s.log.Warn().Err(err).Msg("bad new_task_room payload")
			return
		}
		s.handler.OnRoomCreated(ctx, ev)
	case "status":
		var ev Presence
		if err := json.Unmarshal(f.arg, &ev); err != nil {
			s.log.Warn().Err(err).Msg("bad status payload")
			return
		}
		s.handler.OnPresence(ctx, ev)
	case "text_message":
		var ev Message
		if err := json.Unmarshal(f.arg, &ev); err != nil {
			s.log.Warn().Err(err).Msg("bad text_message payload")
			return
		}
		s.handler.OnMessage(ctx, ev)
	case "command":
		var raw struct {
			RoomID  string          `json:"room"`
			User    User            `json:"user"`
			Command json.RawMessage `json:"command"`
		}
		if err := json.Unmarshal(f.arg, &raw); err != nil {
			s.log.Warn().Err(err).Msg("bad command payload")
			return
		}
		body, err := DecodeCommand(raw.Command)
		if err != nil {
			s.log.Warn().Err(err).Str("room", raw.RoomID).Msg("command dropped")
			return
		}
		s.handler.OnCommand(ctx, Command{RoomID: raw.RoomID, User: raw.User, Body: body})
	default:
		s.log.Debug().Str("event", f.event).Msg("unhandled event")
	}
}

// Emit sends a socket.io event to the platform.
func (s *Socket) Emit(event string, arg any) error {
	data, err := encodeEvent(event, arg)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Socket) write(data []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("socket not connected")
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Socket) startPing(every time.Duration) {
	s.wmu.Lock()
	if s.stopPing != nil {
		close(s.stopPing)
	}
	stop := make(chan struct{})
	s.stopPing = stop
	s.wmu.Unlock()

	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := s.write(pingMessage()); err != nil {
					return
				}
			}
		}
	}()
}

// Close tears the connection down; Run returns afterwards.
func (s *Socket) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.closeConn()
}

func (s *Socket) closeConn() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.stopPing != nil {
		close(s.stopPing)
		s.stopPing = nil
	}
	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(500*time.Millisecond))
		_ = s.conn.Close()
		s.conn = nil
	}
}
