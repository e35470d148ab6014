package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// inboundMessage is the client-to-server payload. The clientID is whatever
// the client claims and is recorded as the author without verification.
type inboundMessage struct {
	ClientID string `json:"clientID"`
	Content  string `json:"content"`
}

var _ contract.EventSink = (*Session)(nil)

// Session is one live WebSocket connection and its delivery sink. Its
// lifecycle is Connecting -> Open -> Closed; Closed is terminal and closing
// is idempotent, so late close or error signals are no-ops.
//
// The id is held atomically: Join publishes the sink into the registry
// before the handler learns the assigned id, so the broadcaster can call
// Consume while bind is still pending on the handler goroutine.
type Session struct {
	log     *slog.Logger
	conn    *websocket.Conn
	service contract.IRelayService
	monitor *observability.Monitor
	send    chan []byte
	closed  atomic.Bool
	id      atomic.Pointer[string]
}

func newSession(log *slog.Logger, conn *websocket.Conn,
	service contract.IRelayService, monitor *observability.Monitor,
	bufferSize int) *Session {
	return &Session{
		log:     log,
		conn:    conn,
		service: service,
		monitor: monitor,
		send:    make(chan []byte, bufferSize),
	}
}

// bind records the server-assigned session id. Called once, right after
// Join returns; until then sessionID reports empty.
func (s *Session) bind(id string) {
	s.id.Store(&id)
}

func (s *Session) sessionID() string {
	if id := s.id.Load(); id != nil {
		return *id
	}
	return ""
}

// Consume hands a serialized event to the write pump. A full buffer drops
// this delivery for this session only; the fan-out loop never blocks here.
func (s *Session) Consume(_ context.Context, payload []byte) error {
	if s.closed.Load() {
		return nil
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return fmt.Errorf("session %s send buffer full", s.sessionID())
	}
}

func (s *Session) Writable() bool {
	return !s.closed.Load()
}

// readPump processes inbound events until the transport closes. A malformed
// payload is logged and ignored: no state change, no response, the
// connection stays open.
func (s *Session) readPump(ctx context.Context) {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Debug("Read error", "session", s.sessionID(), "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.monitor.IncrParseErrors()
			s.log.Error("Error processing WebSocket message", "session", s.sessionID(), "error", err)
			continue
		}

		_, err = s.service.PostMessage(ctx, domain.PostMessageCommand{
			ClientID: msg.ClientID,
			Content:  msg.Content,
		})
		if err != nil {
			s.log.Error("Failed to post message", "session", s.sessionID(), "error", err)
		}
	}
}

// writePump drains the send buffer to the peer and keeps the connection
// alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close transitions the session to Closed exactly once, unregisters it and
// releases the transport. Pending sends are abandoned; the message store is
// untouched.
func (s *Session) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.service.Leave(s.sessionID())
	_ = s.conn.Close()
}
