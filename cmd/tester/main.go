// Command tester is a manual end-to-end client for a running relay: it
// connects over WebSocket, posts through the REST API, and prints what each
// surface reports.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"

	"chat-relay/domain"
)

type envelope struct {
	Type     string           `json:"type"`
	Message  json.RawMessage  `json:"message"`
	Messages []domain.Message `json:"messages"`
	ID       string           `json:"id"`
}

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	banner := func(text string) string {
		if config.Colours {
			return color.New(color.BgBlack, color.FgGreen).Render(text)
		}
		return text
	}

	// 1. Connect over WebSocket and collect the handshake frames
	fmt.Println(banner("--- Connecting ---"))
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+config.WSAddr, nil)
	if err != nil {
		log.Fatalf("WebSocket dial failed: %v", err)
	}
	defer conn.Close()

	initial := readEnvelope(conn)
	fmt.Printf("Initial snapshot: %d message(s)\n", len(initial.Messages))

	welcome := readEnvelope(conn)
	var welcomeText string
	_ = json.Unmarshal(welcome.Message, &welcomeText)
	fmt.Println(welcomeText)

	// 2. Post a message through the REST API
	fmt.Println(banner("--- Posting via REST ---"))
	clientID := fmt.Sprintf("tester-%d", time.Now().Unix())
	posted := postMessage(config, clientID, "hello from the tester")
	fmt.Printf("Created message %s\n", posted.ID)

	// 3. The relay should broadcast it back on the socket
	broadcast := readEnvelope(conn)
	if broadcast.Type != "new" {
		log.Fatalf("Expected a \"new\" event, got %q", broadcast.Type)
	}
	fmt.Println("Broadcast received on the socket")

	// 4. Render the full log
	fmt.Println(banner("--- Current messages ---"))
	printMessages(config, listMessages(config))

	// 5. Delete our own message and watch the broadcast
	fmt.Println(banner("--- Deleting ---"))
	status := deleteMessage(config, posted.ID, clientID)
	fmt.Printf("Delete as author: HTTP %d\n", status)

	deletion := readEnvelope(conn)
	if deletion.Type != "delete" || deletion.ID != posted.ID {
		log.Fatalf("Expected a \"delete\" event for %s, got %+v", posted.ID, deletion)
	}
	fmt.Println("Deletion broadcast received")

	// 6. A foreign delete must bounce with 403
	other := postMessage(config, "someone-else", "not yours to delete")
	readEnvelope(conn)
	if status := deleteMessage(config, other.ID, clientID); status != http.StatusForbidden {
		log.Fatalf("Expected HTTP 403 on foreign delete, got %d", status)
	}
	fmt.Println("Foreign delete rejected with 403")

	fmt.Println(banner("--- All checks passed ---"))
}

func readEnvelope(conn *websocket.Conn) envelope {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		log.Fatalf("Read failed: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Fatalf("Unexpected frame %s: %v", raw, err)
	}
	return env
}

func postMessage(config Config, clientID, data string) domain.Message {
	body, _ := json.Marshal(map[string]string{"clientID": clientID, "data": data})
	resp, err := http.Post(fmt.Sprintf("http://%s/resources", config.APIAddr),
		"application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("Expected HTTP 201, got %d", resp.StatusCode)
	}

	var message domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		log.Fatalf("Decode failed: %v", err)
	}
	return message
}

func listMessages(config Config) []domain.Message {
	resp, err := http.Get(fmt.Sprintf("http://%s/resources", config.APIAddr))
	if err != nil {
		log.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var messages []domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		log.Fatalf("Decode failed: %v", err)
	}
	return messages
}

func deleteMessage(config Config, id, clientID string) int {
	body, _ := json.Marshal(map[string]string{"clientID": clientID})
	request, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("http://%s/resources/%s", config.APIAddr, id), bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Request build failed: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		log.Fatalf("DELETE failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func printMessages(config Config, messages []domain.Message) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Author", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)

	for _, message := range messages {
		row := []string{message.ID, message.AuthorID, message.Content}
		if config.Colours {
			row[1] = color.FgCyan.Render(row[1])
		}
		table.Append(row)
	}
	table.Render()
}
