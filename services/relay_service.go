// Package services contains the relay's application logic, shared by the
// WebSocket gateway and the REST surface.
package services

import (
	"context"
	"fmt"
	"log/slog"

	stderrors "errors"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
)

var _ contract.IRelayService = (*RelayService)(nil)

// RelayService validates and applies inbound commands against the message
// store and schedules the resulting broadcasts. Broadcast delivery itself is
// asynchronous: events land on a buffered channel drained by the
// broadcaster, so a posting client never waits for the fan-out.
type RelayService struct {
	log       *slog.Logger
	store     contract.IMessageStore
	registry  contract.IRegistry
	moderator *moderation.Moderator
	events    chan event.DomainEvent
	monitor   *observability.Monitor
}

func NewRelayService(log *slog.Logger, store contract.IMessageStore,
	registry contract.IRegistry, moderator *moderation.Moderator,
	events chan event.DomainEvent, monitor *observability.Monitor) *RelayService {
	return &RelayService{
		log:       log,
		store:     store,
		registry:  registry,
		moderator: moderator,
		events:    events,
		monitor:   monitor,
	}
}

// PostMessage censors the content, appends it to the log and schedules the
// "new" broadcast. The returned Message is the stored record, censored
// content included. The claimed ClientID becomes the author as is.
func (s *RelayService) PostMessage(_ context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	content := cmd.Content
	if s.moderator != nil {
		censored, found := s.moderator.Censor(cmd.Content)
		if len(found) > 0 {
			s.log.Warn("Censored words in message", "author", cmd.ClientID, "count", len(found))
		}
		content = censored
	}

	message, err := s.store.Append(cmd.ClientID, content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("append failed: %w", err)
	}
	s.monitor.IncrMessagesCreated()
	s.log.Info("Message created", "id", message.ID, "author", message.AuthorID)

	s.dispatch(event.MessagePosted{Message: message})
	return message, nil
}

// ListMessages returns the current log snapshot in insertion order.
func (s *RelayService) ListMessages() ([]domain.Message, error) {
	return s.store.List()
}

// DeleteMessage removes a message when the requester is its author and
// schedules the "delete" broadcast. Not-found and unauthorized outcomes come
// back as their sentinel errors, untouched, so callers can map them to
// distinct responses.
func (s *RelayService) DeleteMessage(_ context.Context, cmd domain.DeleteMessageCommand) error {
	if err := s.store.Remove(cmd.MessageID, cmd.RequesterID); err != nil {
		if stderrors.Is(err, errors.ErrUnauthorized) {
			s.log.Warn("Unauthorized delete attempt",
				"requester", cmd.RequesterID, "id", cmd.MessageID)
		}
		return err
	}
	s.monitor.IncrMessagesDeleted()
	s.log.Info("Message deleted", "id", cmd.MessageID)

	s.dispatch(event.MessageDeleted{ID: cmd.MessageID})
	return nil
}

// Join registers the session and unicasts the initial snapshot followed by
// the welcome event to that session only, through the same sink mechanism
// the broadcaster uses.
//
// Registration and snapshot are two steps, not one: a broadcast in flight
// between them can deliver a "new" event for a message the snapshot already
// contains. The window can duplicate an event for the joining session but
// never lose one, and per-session ordering still holds.
func (s *RelayService) Join(ctx context.Context, sink contract.EventSink) (domain.ClientSession, error) {
	session := s.registry.Register(sink)
	s.monitor.IncrConnections()

	messages, err := s.store.List()
	if err != nil {
		s.registry.Unregister(session.ID)
		s.monitor.DecrConnections()
		return domain.ClientSession{}, fmt.Errorf("snapshot failed: %w", err)
	}

	s.unicast(ctx, sink, session.ID, event.InitialSnapshot{Messages: messages})
	s.unicast(ctx, sink, session.ID, event.Welcome{ClientID: session.ID})
	return session, nil
}

// Leave is idempotent; only the call that actually removes the session
// touches the connection gauge.
func (s *RelayService) Leave(sessionID string) bool {
	removed := s.registry.Unregister(sessionID)
	if removed {
		s.monitor.DecrConnections()
		s.log.Info("Client disconnected", "client_id", sessionID)
	}
	return removed
}

func (s *RelayService) dispatch(evt event.DomainEvent) {
	select {
	case s.events <- evt:
	default:
		s.log.Warn("Event channel full, dropping broadcast", "type", evt.Type())
	}
}

func (s *RelayService) unicast(ctx context.Context, sink contract.EventSink, sessionID string, evt event.DomainEvent) {
	payload, err := event.Encode(evt)
	if err != nil {
		s.log.Error("Failed to encode event", "type", evt.Type(), "error", err)
		return
	}
	if err := sink.Consume(ctx, payload); err != nil {
		s.log.Debug("Unicast dropped", "session", sessionID, "type", evt.Type(), "error", err)
	}
}
