// Package executor holds what the console front ends share: a chat
// transport for one local user, input parsing and HTML rendering.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/entrhq/moodjournal/pkg/types"
)

// ErrNoSuchButton is returned for a #N press outside the latest keyboard.
var ErrNoSuchButton = errors.New("executor: no such button")

// Handler consumes chat events. *bot.Bot implements it.
type Handler interface {
	Handle(ctx context.Context, ev *types.Event)
}

// EntryKind says what an Entry shows.
type EntryKind int

const (
	EntryMessage EntryKind = iota
	EntryEdit
	EntryDelete
	EntryPhoto
	EntryDocument
)

// Entry is one thing the bot did to the transcript.
type Entry struct {
	Kind       EntryKind
	ID         types.MessageID
	Text       string // HTML subset; the caption for photos
	Keyboard   types.Keyboard
	ForceReply bool
	Path       string // photos and documents
}

// Sink displays entries. It is called from timer goroutines too.
type Sink func(Entry)

// Console is a types.Transport for a single local user. It remembers the
// latest keyboard so that "#N" can press its N-th button.
type Console struct {
	mu       sync.Mutex
	userID   int64
	nextID   types.MessageID
	keyboard types.Keyboard
	kbID     types.MessageID
	sink     Sink
}

// NewConsole creates a console transport for userID.
func NewConsole(userID int64) *Console {
	return &Console{userID: userID, sink: func(Entry) {}}
}

// UserID returns the local user's id.
func (c *Console) UserID() int64 {
	return c.userID
}

// Attach routes entries to sink.
func (c *Console) Attach(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *Console) emit(e Entry) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	sink(e)
}

// Send implements types.Transport.
func (c *Console) Send(_ context.Context, _ int64, msg *types.OutgoingMessage) (types.MessageID, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if len(msg.Keyboard) > 0 {
		c.keyboard, c.kbID = msg.Keyboard, id
	}
	c.mu.Unlock()

	c.emit(Entry{Kind: EntryMessage, ID: id, Text: msg.Text, Keyboard: msg.Keyboard, ForceReply: msg.ForceReply})
	return id, nil
}

// Edit implements types.Transport.
func (c *Console) Edit(_ context.Context, _ int64, id types.MessageID, msg *types.OutgoingMessage) error {
	c.mu.Lock()
	if id == c.kbID {
		c.keyboard = msg.Keyboard
	}
	c.mu.Unlock()

	c.emit(Entry{Kind: EntryEdit, ID: id, Text: msg.Text, Keyboard: msg.Keyboard})
	return nil
}

// Delete implements types.Transport.
func (c *Console) Delete(_ context.Context, _ int64, id types.MessageID) error {
	c.mu.Lock()
	if id == c.kbID {
		c.keyboard, c.kbID = nil, 0
	}
	c.mu.Unlock()

	c.emit(Entry{Kind: EntryDelete, ID: id})
	return nil
}

// SendPhoto implements types.Transport.
func (c *Console) SendPhoto(_ context.Context, _ int64, path, caption string) error {
	c.emit(Entry{Kind: EntryPhoto, Text: caption, Path: path})
	return nil
}

// SendDocument implements types.Transport.
func (c *Console) SendDocument(_ context.Context, _ int64, path string) error {
	c.emit(Entry{Kind: EntryDocument, Path: path})
	return nil
}

// Keyboard returns the latest keyboard.
func (c *Console) Keyboard() types.Keyboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyboard
}

// Event turns a typed line into an event. "#N" presses button N of the
// latest keyboard, counting from 1 in reading order; anything else is text.
func (c *Console) Event(line string, messageID types.MessageID) (*types.Event, error) {
	if n, ok := buttonNumber(line); ok {
		buttons := c.Keyboard().Buttons()
		if n < 1 || n > len(buttons) {
			return nil, fmt.Errorf("%w: #%d", ErrNoSuchButton, n)
		}
		return types.NewButtonEvent(c.userID, messageID, buttons[n-1].Payload), nil
	}
	return types.NewTextEvent(c.userID, messageID, line), nil
}

func buttonNumber(line string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "#")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
