package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/web"
	"chat-relay/infrastructure/ws"
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

type fixture struct {
	api *httptest.Server
	ws  *httptest.Server
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

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

	api := httptest.NewServer(web.NewServer(log, service, monitor).Handler())
	t.Cleanup(api.Close)

	gateway := httptest.NewServer(ws.NewServer(log, service, monitor, 16).Handler(ctx))
	t.Cleanup(gateway.Close)

	return fixture{api: api, ws: gateway}
}

func (f fixture) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ws.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// The handshake is always initial then welcome.
	initial := readEnvelope(t, conn)
	require.Equal(t, "initial", initial.Type)

	welcome := readEnvelope(t, conn)
	require.Equal(t, "welcome", welcome.Type)
	var text string
	require.NoError(t, json.Unmarshal(welcome.Message, &text))
	clientID := text[strings.LastIndex(text, " ")+1:]
	require.Contains(t, clientID, "client-")

	return conn, clientID
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

func (f fixture) post(t *testing.T, clientID, data string) (int, domain.Message) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"clientID": clientID, "data": data})
	require.NoError(t, err)

	resp, err := http.Post(f.api.URL+"/resources", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var message domain.Message
	_ = json.NewDecoder(resp.Body).Decode(&message)
	return resp.StatusCode, message
}

func (f fixture) delete(t *testing.T, id, clientID string) (int, map[string]string) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"clientID": clientID})
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/resources/%s", f.api.URL, id), bytes.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (f fixture) list(t *testing.T) []domain.Message {
	t.Helper()
	resp, err := http.Get(f.api.URL + "/resources")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []domain.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	return messages
}

func Test_Scenario(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// 1. Two clients connect; each completes the initial/welcome handshake
	alice, _ := f.dial(t)
	bob, bobID := f.dial(t)

	// 2. Alice posts over the socket; both clients receive the broadcast
	req.NoError(alice.WriteJSON(map[string]string{
		"clientID": "alice", "content": "hello room",
	}))

	var aliceMessageID string
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		req.Equal("new", env.Type)
		var message domain.Message
		req.NoError(json.Unmarshal(env.Message, &message))
		req.Equal("alice", message.AuthorID)
		req.Equal("hello room", message.Content)
		aliceMessageID = message.ID
	}

	// 3. Bob posts over REST; the broadcast reaches both sockets
	status, bobMessage := f.post(t, bobID, "hi from rest")
	req.Equal(http.StatusCreated, status)
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		req.Equal("new", env.Type)
	}

	// 4. The log now lists both messages in insertion order
	ids := lo.Map(f.list(t), func(m domain.Message, _ int) string { return m.ID })
	req.Equal([]string{aliceMessageID, bobMessage.ID}, ids)

	// 5. Bob cannot delete Alice's message
	status, body := f.delete(t, aliceMessageID, bobID)
	req.Equal(http.StatusForbidden, status)
	req.Equal("Unauthorized delete attempt", body["error"])
	req.Len(f.list(t), 2)

	// 6. Alice deletes her own message; both clients see the deletion
	status, body = f.delete(t, aliceMessageID, "alice")
	req.Equal(http.StatusOK, status)
	req.Equal(fmt.Sprintf("Message with id %s deleted.", aliceMessageID), body["message"])

	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		req.Equal("delete", env.Type)
		req.Equal(aliceMessageID, env.ID)
	}
	req.Len(f.list(t), 1)

	// 7. A second delete of the same id reports not found
	status, body = f.delete(t, aliceMessageID, "alice")
	req.Equal(http.StatusNotFound, status)
	req.Equal(fmt.Sprintf("Message with id %s not found.", aliceMessageID), body["error"])
}

func Test_Disconnected_Client_Stops_Receiving(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice, _ := f.dial(t)
	bob, _ := f.dial(t)

	// When Bob disconnects
	req.NoError(bob.Close())
	time.Sleep(100 * time.Millisecond)

	// Then a later post still reaches Alice without error
	status, _ := f.post(t, "alice", "anyone there?")
	req.Equal(http.StatusCreated, status)

	env := readEnvelope(t, alice)
	req.Equal("new", env.Type)
}
