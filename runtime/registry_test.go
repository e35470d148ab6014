package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSink struct{}

func (stubSink) Consume(_ context.Context, _ []byte) error { return nil }
func (stubSink) Writable() bool                            { return true }

func TestRegistry_Register_Assigns_Unique_Ids(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given no session is connected
	req.Zero(registry.Count())

	// When two sessions register
	first := registry.Register(stubSink{})
	second := registry.Register(stubSink{})

	// Then both get distinct server-side ids and a connect timestamp
	req.NotEqual(first.ID, second.ID)
	req.Contains(first.ID, "client-")
	req.False(first.ConnectedAt.IsZero())
	req.Equal(2, registry.Count())
}

func TestRegistry_Unregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := registry.Register(stubSink{})

	// When the session unregisters twice
	removed := registry.Unregister(session.ID)
	removedAgain := registry.Unregister(session.ID)

	// Then the first call removes, the second is a no-op with the same
	// observable state
	req.True(removed)
	req.False(removedAgain)
	req.Zero(registry.Count())
}

func TestRegistry_Snapshot_Is_Point_In_Time(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register(stubSink{})
	registry.Register(stubSink{})

	// When a snapshot is taken
	snapshot := registry.Snapshot()

	// And a session registers afterwards
	registry.Register(stubSink{})

	// Then the earlier snapshot does not grow retroactively
	req.Len(snapshot, 2)
	req.Equal(3, registry.Count())
	for _, entry := range snapshot {
		req.NotNil(entry.Sink)
		req.NotEmpty(entry.Session.ID)
	}
}

func TestRegistry_Concurrent_Register_Snapshot_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When many sessions churn while snapshots are taken
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				session := registry.Register(stubSink{})
				for _, entry := range registry.Snapshot() {
					_ = entry.Sink.Writable()
				}
				registry.Unregister(session.ID)
			}
		}()
	}
	wg.Wait()

	// Then every session was removed exactly once
	req.Zero(registry.Count())
	req.Empty(registry.Snapshot())
}
