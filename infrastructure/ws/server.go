// Package ws is the persistent-channel gateway: it upgrades HTTP to
// WebSocket, registers the session and runs the per-connection pumps.
package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"chat-relay/contract"
	"chat-relay/observability"
)

type Server struct {
	log        *slog.Logger
	service    contract.IRelayService
	monitor    *observability.Monitor
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, service contract.IRelayService,
	monitor *observability.Monitor, bufferSize int) *Server {
	return &Server{
		log:        log,
		service:    service,
		monitor:    monitor,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			// The relay serves arbitrary browser clients, like the CORS
			// policy on the REST side.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler accepts connections on any path: browser clients dial the port
// root. The passed context outlives individual requests; it is the relay
// instance's lifetime.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Error("Upgrade failed", "error", err)
			return
		}

		session := newSession(s.log, conn, s.service, s.monitor, s.bufferSize)
		clientSession, err := s.service.Join(ctx, session)
		if err != nil {
			s.log.Error("Join failed", "error", err)
			_ = conn.Close()
			return
		}
		session.bind(clientSession.ID)
		s.log.Info("A new client connected", "client_id", clientSession.ID)

		go session.writePump()
		go session.readPump(ctx)
	})
}
