// Package chattest provides a recording chat transport for tests.
package chattest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/entrhq/moodjournal/pkg/types"
)

// ErrSendFailed is returned by a transport configured to fail.
var ErrSendFailed = errors.New("chattest: send failed")

// Sent is one message as the transport last saw it.
type Sent struct {
	ID      types.MessageID
	UserID  int64
	Message types.OutgoingMessage
	Edits   int
	Deleted bool
}

// Transport records everything sent through it.
type Transport struct {
	mu        sync.Mutex
	nextID    types.MessageID
	sent      []*Sent
	deleted   []types.MessageID
	photos    []string
	documents []string
	failSend  bool
}

// New creates an empty transport.
func New() *Transport {
	return &Transport{nextID: 1000}
}

// FailSends makes subsequent Send calls fail.
func (t *Transport) FailSends(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failSend = fail
}

// Send implements types.Transport.
func (t *Transport) Send(_ context.Context, userID int64, msg *types.OutgoingMessage) (types.MessageID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSend {
		return 0, ErrSendFailed
	}
	t.nextID++
	t.sent = append(t.sent, &Sent{ID: t.nextID, UserID: userID, Message: *msg})
	return t.nextID, nil
}

// Edit implements types.Transport.
func (t *Transport) Edit(_ context.Context, userID int64, id types.MessageID, msg *types.OutgoingMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sent {
		if s.ID == id && s.UserID == userID {
			s.Message = *msg
			s.Edits++
			return nil
		}
	}
	return errors.New("chattest: no such message")
}

// Delete implements types.Transport.
func (t *Transport) Delete(_ context.Context, _ int64, id types.MessageID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, id)
	for _, s := range t.sent {
		if s.ID == id {
			s.Deleted = true
		}
	}
	return nil
}

// SendPhoto implements types.Transport.
func (t *Transport) SendPhoto(_ context.Context, _ int64, path, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.photos = append(t.photos, path)
	return nil
}

// SendDocument implements types.Transport.
func (t *Transport) SendDocument(_ context.Context, _ int64, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.documents = append(t.documents, path)
	return nil
}

// Messages returns copies of the messages sent to userID, oldest first.
func (t *Transport) Messages(userID int64) []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Sent
	for _, s := range t.sent {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out
}

// Texts returns the texts sent to userID.
func (t *Transport) Texts(userID int64) []string {
	var out []string
	for _, s := range t.Messages(userID) {
		out = append(out, s.Message.Text)
	}
	return out
}

// Last returns the newest message sent to userID.
func (t *Transport) Last(userID int64) (Sent, bool) {
	msgs := t.Messages(userID)
	if len(msgs) == 0 {
		return Sent{}, false
	}
	return msgs[len(msgs)-1], true
}

// LastWithKeyboard returns the newest message to userID carrying a keyboard.
func (t *Transport) LastWithKeyboard(userID int64) (Sent, bool) {
	msgs := t.Messages(userID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if len(msgs[i].Message.Keyboard) > 0 {
			return msgs[i], true
		}
	}
	return Sent{}, false
}

// Contains reports whether any message to userID contains substr.
func (t *Transport) Contains(userID int64, substr string) bool {
	for _, text := range t.Texts(userID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// Deleted returns the IDs passed to Delete.
func (t *Transport) Deleted() []types.MessageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.MessageID(nil), t.deleted...)
}

// Photos returns the paths passed to SendPhoto.
func (t *Transport) Photos() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.photos...)
}

// Documents returns the paths passed to SendDocument.
func (t *Transport) Documents() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.documents...)
}

// Payloads returns every button payload of a keyboard in reading order.
func Payloads(kb types.Keyboard) []string {
	var out []string
	for _, b := range kb.Buttons() {
		out = append(out, b.Payload)
	}
	return out
}
