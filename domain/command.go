package domain

// PostMessageCommand is the intent to append a message to the log.
// ClientID is self-asserted by the caller and recorded as the author
// without verification.
type PostMessageCommand struct {
	ClientID string
	Content  string
}

// DeleteMessageCommand is the intent to remove a message. The delete only
// succeeds when RequesterID matches the author recorded on the message.
type DeleteMessageCommand struct {
	MessageID   string
	RequesterID string
}
