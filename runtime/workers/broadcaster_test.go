package workers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/observability"
)

func TestBroadcaster_Fanout_Serializes_Once(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	sinkA := mocks.NewMockEventSink(ctrl)
	sinkB := mocks.NewMockEventSink(ctrl)
	snapshot := []contract.SessionSink{
		{Session: domain.NewClientSession(), Sink: sinkA},
		{Session: domain.NewClientSession(), Sink: sinkB},
	}

	broadcaster := NewBroadcaster(log, mockRegistry, nil, observability.NewMonitor(log))

	// Given two writable sessions in the snapshot
	mockRegistry.EXPECT().Snapshot().Return(snapshot).Times(1)
	sinkA.EXPECT().Writable().Return(true).Times(1)
	sinkB.EXPECT().Writable().Return(true).Times(1)

	var payloadA, payloadB []byte
	sinkA.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, payload []byte) { payloadA = payload }).
		Return(nil).Times(1)
	sinkB.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, payload []byte) { payloadB = payload }).
		Return(nil).Times(1)

	// When a posted message fans out
	message := domain.NewMessage("client-a", "hi")
	broadcaster.Fanout(context.Background(), event.MessagePosted{Message: message})

	// Then both sessions received the exact same serialized payload
	req.JSONEq(string(payloadA), string(payloadB))
	req.Contains(string(payloadA), `"type":"new"`)
	req.Contains(string(payloadA), message.ID)
}

func TestBroadcaster_Fanout_Skips_Unwritable_Sink(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	open := mocks.NewMockEventSink(ctrl)
	closing := mocks.NewMockEventSink(ctrl)
	snapshot := []contract.SessionSink{
		{Session: domain.NewClientSession(), Sink: open},
		{Session: domain.NewClientSession(), Sink: closing},
	}

	broadcaster := NewBroadcaster(log, mockRegistry, nil, observability.NewMonitor(log))

	// Given one session is no longer writable
	mockRegistry.EXPECT().Snapshot().Return(snapshot).Times(1)
	open.EXPECT().Writable().Return(true).Times(1)
	closing.EXPECT().Writable().Return(false).Times(1)

	// Then only the open session gets the payload; the closing one is
	// skipped silently, no Consume call at all
	open.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	broadcaster.Fanout(context.Background(), event.MessageDeleted{ID: "gone"})
}

func TestBroadcaster_Run_Drains_Channel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	snapshot := []contract.SessionSink{
		{Session: domain.NewClientSession(), Sink: sink},
	}

	events := make(chan event.DomainEvent, 2)
	broadcaster := NewBroadcaster(log, mockRegistry, events, observability.NewMonitor(log))

	delivered := make(chan struct{})
	mockRegistry.EXPECT().Snapshot().Return(snapshot).Times(1)
	sink.EXPECT().Writable().Return(true).Times(1)
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, _ []byte) { close(delivered) }).
		Return(nil).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broadcaster.Run(ctx) }()

	// When an event lands on the channel
	events <- event.MessagePosted{Message: domain.NewMessage("client-a", "hello")}

	// Then it is delivered and the worker stops cleanly on cancel
	<-delivered
	cancel()
	req.NoError(<-done)
}
