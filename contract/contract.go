//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one session's delivery endpoint. Consume receives a payload
// already serialized by the broadcaster; delivery is fire and forget. A sink
// that is not Writable (closing or closed) is skipped silently during
// fan-out, which is not an error.
type EventSink interface {
	Consume(ctx context.Context, payload []byte) error
	Writable() bool
}

// SessionSink pairs a registered session with its delivery endpoint.
type SessionSink struct {
	Session domain.ClientSession
	Sink    EventSink
}

type IRegistry interface {
	Register(sink EventSink) domain.ClientSession
	Unregister(sessionID string) bool
	Snapshot() []SessionSink
	Count() int
}

// IMessageStore is the ordered in-memory message log. Remove reports
// errors.ErrNotFound for an unknown id and errors.ErrUnauthorized when the
// requester is not the author; the two outcomes must stay distinguishable.
type IMessageStore interface {
	Append(authorID, content string) (domain.Message, error)
	List() ([]domain.Message, error)
	Remove(id, requesterID string) error
}

// IRelayService is the surface both gateways (WebSocket and REST) talk to.
type IRelayService interface {
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	ListMessages() ([]domain.Message, error)
	DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error
	Join(ctx context.Context, sink EventSink) (domain.ClientSession, error)
	Leave(sessionID string) bool
}
