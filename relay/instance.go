// Package relay composes one complete relay instance: store, registry,
// service, broadcaster and both network surfaces.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/web"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Host                 string
	HTTPPort             int
	WSPort               int
	BufferSize           int
	ConnectionBufferSize int
	CensoredChar         rune
}

var _ contract.Worker = (*Instance)(nil)

// Instance is one supervised relay worker. Run builds all state from
// scratch on every invocation, so a crash restart comes back with an empty
// message log and no registered sessions, and instances never share state
// with each other. They only share their listening ports.
type Instance struct {
	log  *slog.Logger
	opts Options
}

func NewInstance(log *slog.Logger, opts Options) *Instance {
	return &Instance{log: log, opts: opts}
}

func (i *Instance) Run(ctx context.Context) error {
	store, err := repositories.NewMessageStore(i.log)
	if err != nil {
		return fmt.Errorf("opening message store: %w", err)
	}
	defer func() { _ = store.Close() }()

	moderator, languages, err := moderation.LoadDefault(i.opts.CensoredChar)
	if err != nil {
		return fmt.Errorf("loading moderation lists: %w", err)
	}
	i.log.Info("Moderation lists loaded", "languages", languages)

	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor(i.log)
	events := make(chan event.DomainEvent, i.opts.BufferSize)
	service := services.NewRelayService(i.log, store, registry, moderator, events, monitor)
	broadcaster := workers.NewBroadcaster(i.log, registry, events, monitor)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := broadcaster.Run(runCtx); err != nil {
			i.log.Error("Broadcaster stopped", "error", err)
		}
	}()

	webListener, err := internal.Listen(runCtx, fmt.Sprintf("%s:%d", i.opts.Host, i.opts.HTTPPort))
	if err != nil {
		return fmt.Errorf("binding http port: %w", err)
	}
	wsListener, err := internal.Listen(runCtx, fmt.Sprintf("%s:%d", i.opts.Host, i.opts.WSPort))
	if err != nil {
		_ = webListener.Close()
		return fmt.Errorf("binding websocket port: %w", err)
	}

	webServer := &http.Server{
		Handler: web.NewServer(i.log, service, monitor).Handler(),
	}
	wsServer := &http.Server{
		Handler: ws.NewServer(i.log, service, monitor, i.opts.ConnectionBufferSize).Handler(runCtx),
	}

	errChan := make(chan error, 2)
	go func() {
		i.log.Info("RESTful API server running", "addr", webListener.Addr().String())
		errChan <- webServer.Serve(webListener)
	}()
	go func() {
		i.log.Info("WebSocket server running", "addr", wsListener.Addr().String())
		errChan <- wsServer.Serve(wsListener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		_ = webServer.Shutdown(shutdownCtx)
		_ = wsServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		cancel()
		_ = webServer.Close()
		_ = wsServer.Close()
		return fmt.Errorf("server stopped: %w", err)
	}
}
