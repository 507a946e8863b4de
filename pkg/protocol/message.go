package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one exchange unit in a chat session. Messages are immutable
// once appended to a transcript; transcript order is conversation order.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Options   []string  `json:"options,omitempty"`
}

// NewMessage builds a message with a fresh ID and the current time.
func NewMessage(sender Sender, text string, options []string) Message {
	return Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
		Options:   options,
	}
}

// UserText returns the text of every user message, in transcript order.
func UserText(transcript []Message) []string {
	var out []string
	for _, m := range transcript {
		if m.Sender == SenderUser {
			out = append(out, m.Text)
		}
	}
	return out
}
