package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"` // user or assistant
	Content string `json:"content"`
	TS      int64  `json:"ts"` // unix milliseconds
}

// NewMessage stamps a message with a fresh id and the given creation time.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		TS:      at.UnixMilli(),
	}
}

func (m Message) Time() time.Time {
	return time.UnixMilli(m.TS)
}
