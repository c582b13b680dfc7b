// Package types holds the data exchanged between the chat transport and the
// journal core, plus the LLM message type.
package types

import "context"

// Transport delivers output to chat users. Implementations must be safe for
// concurrent use: timers fire on their own goroutines.
type Transport interface {
	// Send posts a message and returns its ID.
	Send(ctx context.Context, userID int64, msg *OutgoingMessage) (MessageID, error)

	// Edit replaces the text and keyboard of an earlier message.
	Edit(ctx context.Context, userID int64, id MessageID, msg *OutgoingMessage) error

	// Delete removes a message from the transcript.
	Delete(ctx context.Context, userID int64, id MessageID) error

	// SendPhoto posts an image file with a caption.
	SendPhoto(ctx context.Context, userID int64, path, caption string) error

	// SendDocument posts an arbitrary file.
	SendDocument(ctx context.Context, userID int64, path string) error
}
