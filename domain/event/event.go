// Package event defines the tagged events pushed to connected sessions and
// their wire encoding. An event is serialized exactly once per fan-out; every
// recipient gets the same payload.
package event

import (
	"encoding/json"
	"fmt"

	"chat-relay/domain"
)

const (
	TypeInitial = "initial"
	TypeWelcome = "welcome"
	TypeNew     = "new"
	TypeDelete  = "delete"
)

// DomainEvent is the closed set of events a session can receive.
type DomainEvent interface {
	Type() string
}

// InitialSnapshot carries the full current message list. Unicast to a newly
// connected session, right after registration.
type InitialSnapshot struct {
	Messages []domain.Message
}

func (InitialSnapshot) Type() string { return TypeInitial }

// Welcome carries the server-assigned client id. Unicast, sent once after
// InitialSnapshot.
type Welcome struct {
	ClientID string
}

func (Welcome) Type() string { return TypeWelcome }

// MessagePosted is broadcast to all sessions after a successful append.
type MessagePosted struct {
	Message domain.Message
}

func (MessagePosted) Type() string { return TypeNew }

// MessageDeleted is broadcast to all sessions after an authorized removal.
type MessageDeleted struct {
	ID string
}

func (MessageDeleted) Type() string { return TypeDelete }

type initialPayload struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type welcomePayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type newPayload struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type deletePayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Encode serializes an event into its wire envelope.
func Encode(e DomainEvent) ([]byte, error) {
	switch evt := e.(type) {
	case InitialSnapshot:
		return json.Marshal(initialPayload{Type: TypeInitial, Messages: evt.Messages})
	case Welcome:
		welcome := fmt.Sprintf("Welcome to the WebSocket server! Your clientID: %s", evt.ClientID)
		return json.Marshal(welcomePayload{Type: TypeWelcome, Message: welcome})
	case MessagePosted:
		return json.Marshal(newPayload{Type: TypeNew, Message: evt.Message})
	case MessageDeleted:
		return json.Marshal(deletePayload{Type: TypeDelete, ID: evt.ID})
	default:
		return nil, fmt.Errorf("unknown event %T", e)
	}
}
