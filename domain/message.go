// Package domain contains the core concepts of the relay.
// This file defines Message and ClientSession and their creation rules.
// Messages are immutable once created; deletion removes them from the log.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one chat entry. AuthorID is the clientID claimed by the
// sender at creation time and never changes afterwards. The JSON tags are the
// wire contract shared by the WebSocket and REST surfaces.
type Message struct {
	ID       string `json:"id"`
	AuthorID string `json:"clientID"`
	Content  string `json:"content"`
}

// NewMessage creates a Message with a fresh globally unique id.
func NewMessage(authorID, content string) Message {
	return Message{
		ID:       uuid.NewString(),
		AuthorID: authorID,
		Content:  content,
	}
}

// ClientSession is the server-side record of one live connection.
// The ID is generated server-side at accept time and is authoritative:
// it is never taken from client input.
type ClientSession struct {
	ID          string
	ConnectedAt time.Time
}

// NewClientSession assigns a fresh "client-" prefixed identifier.
func NewClientSession() ClientSession {
	return ClientSession{
		ID:          "client-" + uuid.NewString(),
		ConnectedAt: time.Now().UTC(),
	}
}
