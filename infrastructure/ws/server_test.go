package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

type envelope struct {
	Type     string           `json:"type"`
	Message  json.RawMessage  `json:"message"`
	Messages []domain.Message `json:"messages"`
	ID       string           `json:"id"`
}

func newGateway(t *testing.T) (*httptest.Server, *services.RelayService) {
	t.Helper()
	return newGatewayWithBuffer(t, 16)
}

func newGatewayWithBuffer(t *testing.T, bufferSize int) (*httptest.Server, *services.RelayService) {
	t.Helper()
	log := slog.Default()

	store, err := repositories.NewMessageStore(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	moderator, _, err := moderation.LoadDefault('*')
	require.NoError(t, err)

	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor(log)
	events := make(chan event.DomainEvent, 16)
	service := services.NewRelayService(log, store, registry, moderator, events, monitor)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = workers.NewBroadcaster(log, registry, events, monitor).Run(ctx)
	}()

	server := httptest.NewServer(NewServer(log, service, monitor, bufferSize).Handler(ctx))
	t.Cleanup(server.Close)
	return server, service
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestGateway_Connect_Receives_Initial_Then_Welcome(t *testing.T) {
	req := require.New(t)
	server, service := newGateway(t)

	// Given one existing message
	_, err := service.PostMessage(context.Background(),
		domain.PostMessageCommand{ClientID: "a", Content: "history"})
	req.NoError(err)

	// When a client connects
	conn := dial(t, server)

	// Then the first frame is the initial snapshot
	initial := readEnvelope(t, conn)
	req.Equal("initial", initial.Type)
	req.Len(initial.Messages, 1)
	req.Equal("history", initial.Messages[0].Content)

	// And the second frame is the welcome with the assigned client id
	welcome := readEnvelope(t, conn)
	req.Equal("welcome", welcome.Type)
	var text string
	req.NoError(json.Unmarshal(welcome.Message, &text))
	req.Contains(text, "client-")
}

func TestGateway_Inbound_Message_Is_Broadcast(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	sender := dial(t, server)
	readEnvelope(t, sender) // initial
	readEnvelope(t, sender) // welcome

	observer := dial(t, server)
	readEnvelope(t, observer)
	readEnvelope(t, observer)

	// When the sender posts a message over the socket
	req.NoError(sender.WriteJSON(map[string]string{
		"clientID": "sender-1",
		"content":  "hello everyone",
	}))

	// Then both connections receive the "new" event
	for _, conn := range []*websocket.Conn{sender, observer} {
		env := readEnvelope(t, conn)
		req.Equal("new", env.Type)
		var message domain.Message
		req.NoError(json.Unmarshal(env.Message, &message))
		req.Equal("sender-1", message.AuthorID)
		req.Equal("hello everyone", message.Content)
	}
}

func TestGateway_Concurrent_Connects_While_Posting(t *testing.T) {
	req := require.New(t)
	// A zero-size send buffer makes every fan-out delivery hit the
	// buffer-full path while handshakes are still in flight.
	server, service := newGatewayWithBuffer(t, 0)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, err := service.PostMessage(context.Background(), domain.PostMessageCommand{
				ClientID: "flood",
				Content:  fmt.Sprintf("burst %d", i),
			})
			if err != nil {
				return
			}
		}
	}()

	// When connections keep arriving during the flood
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		req.NoError(err)
		_ = conn.Close()
	}

	close(stop)
	<-done

	// Then the relay is still consistent: every posted message was stored
	messages, err := service.ListMessages()
	req.NoError(err)
	req.NotEmpty(messages)
}

func TestGateway_Malformed_Inbound_Keeps_Connection_Open(t *testing.T) {
	req := require.New(t)
	server, service := newGateway(t)

	conn := dial(t, server)
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	// When the client sends an unparseable frame
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// Then no message is created and the connection still works
	req.NoError(conn.WriteJSON(map[string]string{
		"clientID": "a", "content": "still here",
	}))
	env := readEnvelope(t, conn)
	req.Equal("new", env.Type)

	messages, err := service.ListMessages()
	req.NoError(err)
	req.Len(messages, 1)
}
