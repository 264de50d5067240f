package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	User  Role = "user"
	Model Role = "model"
)

// Message is one entry of the conversation. Content of a model message is
// replaced in place while its reply streams in.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// NewMessage stamps a message with a time-ordered id. Timestamps are kept at
// millisecond precision so they survive a storage round trip unchanged.
func NewMessage(role Role, content string, now time.Time) Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Message{
		ID:        id.String(),
		Role:      role,
		Content:   content,
		Timestamp: Millis(now),
	}
}

// Millis truncates t to millisecond precision and drops the monotonic reading.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}
