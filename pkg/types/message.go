package types

// Button is one inline keyboard button.
type Button struct {
	Text    string
	Payload string
}

// Keyboard is a grid of buttons, row by row.
type Keyboard [][]Button

// OutgoingMessage is a message sent to a chat user.
type OutgoingMessage struct {
	// Text may contain the <b> and <i> HTML subset.
	Text string

	// Keyboard is attached below the message, if any.
	Keyboard Keyboard

	// ForceReply asks the client to open a reply box (password prompts).
	ForceReply bool
}

// NewTextMessage creates a plain message.
func NewTextMessage(text string) *OutgoingMessage {
	return &OutgoingMessage{Text: text}
}

// NewKeyboardMessage creates a message with an inline keyboard.
func NewKeyboardMessage(text string, kb Keyboard) *OutgoingMessage {
	return &OutgoingMessage{Text: text, Keyboard: kb}
}

// NewPromptMessage creates a force-reply prompt.
func NewPromptMessage(text string) *OutgoingMessage {
	return &OutgoingMessage{Text: text, ForceReply: true}
}

// Row builds a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Columns lays buttons out n per row.
func Columns(buttons []Button, n int) Keyboard {
	if n <= 0 {
		n = 1
	}
	var kb Keyboard
	for start := 0; start < len(buttons); start += n {
		end := start + n
		if end > len(buttons) {
			end = len(buttons)
		}
		kb = append(kb, append([]Button(nil), buttons[start:end]...))
	}
	return kb
}

// Buttons flattens the keyboard in reading order.
func (k Keyboard) Buttons() []Button {
	var out []Button
	for _, row := range k {
		out = append(out, row...)
	}
	return out
}

// MessageRole is the speaker of an LLM conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries instructions.
	RoleUser      MessageRole = "user"      // RoleUser carries user content.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries model output.
)

// Message is one turn of an LLM conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// MaxTextLength is the longest text a single chat message may carry.
const MaxTextLength = 4096

// SplitText breaks text into chunks of at most limit runes, preferring to cut
// after a newline, then after a space.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxTextLength
	}
	runes := []rune(text)
	var out []string
	for len(runes) > limit {
		cut := lastIndex(runes[:limit], '\n')
		if cut <= 0 {
			cut = lastIndex(runes[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
		} else {
			cut++
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 || len(out) == 0 {
		out = append(out, string(runes))
	}
	return out
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
