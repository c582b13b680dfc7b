package types

import "strings"

// EventKind defines the kind of inbound chat event.
type EventKind string

const (
	EventKindText   EventKind = "text"   // EventKindText is a message typed by the user.
	EventKindButton EventKind = "button" // EventKindButton is a press on an inline keyboard button.
)

// MessageID identifies a message in a user's transcript. Transports assign
// IDs to outgoing messages; zero means "unknown".
type MessageID int64

// Event is one inbound interaction from a chat user.
type Event struct {
	// UserID identifies the chat user.
	UserID int64

	// MessageID is the user's message (text) or the message carrying the
	// pressed keyboard (button).
	MessageID MessageID

	// Kind says whether Payload is free text or a button payload.
	Kind EventKind

	// Payload is the text or the opaque button payload.
	Payload string
}

// NewTextEvent creates a text event.
func NewTextEvent(userID int64, messageID MessageID, text string) *Event {
	return &Event{UserID: userID, MessageID: messageID, Kind: EventKindText, Payload: text}
}

// NewButtonEvent creates a button-press event.
func NewButtonEvent(userID int64, messageID MessageID, payload string) *Event {
	return &Event{UserID: userID, MessageID: messageID, Kind: EventKindButton, Payload: payload}
}

// IsText returns true if this is a text event.
func (e *Event) IsText() bool {
	return e.Kind == EventKindText
}

// IsButton returns true if this is a button event.
func (e *Event) IsButton() bool {
	return e.Kind == EventKindButton
}

// IsCommand returns true for text starting with a slash.
func (e *Event) IsCommand() bool {
	return e.IsText() && strings.HasPrefix(strings.TrimSpace(e.Payload), "/")
}

// Command splits a slash command into its name (without the slash) and the
// remaining argument text. For non-commands both are empty.
func (e *Event) Command() (name, args string) {
	if !e.IsCommand() {
		return "", ""
	}
	text := strings.TrimSpace(e.Payload)[1:]
	name, args, _ = strings.Cut(text, " ")
	// "/cmd@botname" addressing
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(args)
}
