package workers

import (
	"context"
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
)

// Ensure *Broadcaster implements the contract.Worker interface at compile
// time, so a signature drift surfaces here and not in a distant package.
var _ contract.Worker = (*Broadcaster)(nil)

// Broadcaster drains the event channel and fans each event out to every
// writable session from a registry snapshot. The event is serialized once;
// all recipients get the same payload. Delivery is fire and forget with no
// ordering or delivery guarantees, and a slow or closed session never stalls
// the loop.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	events   chan event.DomainEvent
	monitor  *observability.Monitor
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry,
	events chan event.DomainEvent, monitor *observability.Monitor) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, events: events, monitor: monitor}
}

func (w *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping broadcaster")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout serializes the event and delivers it to the current registry
// snapshot. Sinks that are not writable (closing, closed) are skipped
// silently; a failed delivery is dropped for that session only.
func (w *Broadcaster) Fanout(ctx context.Context, evt event.DomainEvent) {
	payload, err := event.Encode(evt)
	if err != nil {
		w.log.Error("Failed to encode event", "type", evt.Type(), "error", err)
		return
	}

	if posted, ok := evt.(event.MessagePosted); ok {
		info := whatlanggo.Detect(posted.Message.Content)
		w.log.Debug("Broadcasting message",
			"author", posted.Message.AuthorID,
			"lang", info.Lang.Iso6391())
	}

	for _, entry := range w.registry.Snapshot() {
		if !entry.Sink.Writable() {
			continue
		}
		if err := entry.Sink.Consume(ctx, payload); err != nil {
			w.monitor.IncrDroppedDeliveries()
			w.log.Debug("Delivery dropped", "session", entry.Session.ID, "error", err)
		}
	}
	w.monitor.IncrBroadcasts()
}
