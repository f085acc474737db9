package chat

import "github.com/RichardoC/quanta/internal/models"

type EventKind int

const (
	// EventAppended carries a message that was just appended and persisted.
	EventAppended EventKind = iota
	// EventReset means the conversation was cleared. The new welcome
	// message follows as an EventAppended.
	EventReset
	// EventTyping toggles the typing indicator.
	EventTyping
)

func (k EventKind) String() string {
	switch k {
	case EventAppended:
		return "appended"
	case EventReset:
		return "reset"
	case EventTyping:
		return "typing"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	Message models.Message
	Typing  bool
}
