// Package runtime holds the per-instance connection registry. Each relay
// instance owns exactly one Registry; there is no cross-instance state.
package runtime

import (
	"sync"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
)

// Registry tracks live sessions under a single lock. It owns the mapping
// from session id to delivery sink only; the underlying transport is closed
// by the gateway, never from here.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.SessionSink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.SessionSink)}
}

// Register assigns a fresh server-side client id, records the connect
// timestamp and stores the session.
func (r *Registry) Register(sink contract.EventSink) domain.ClientSession {
	session := domain.NewClientSession()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = contract.SessionSink{Session: session, Sink: sink}
	return session
}

// Unregister removes the session if present and reports whether it did.
// Removing an unknown or already-removed session is a harmless no-op.
func (r *Registry) Unregister(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	return ok
}

// Snapshot returns a point-in-time enumeration for fan-out. A session
// closing right after the snapshot is tolerated: its sink stops reporting
// Writable and the broadcaster skips it.
func (r *Registry) Snapshot() []contract.SessionSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.sessions)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
