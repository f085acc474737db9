package chat

import "github.com/RichardoC/quanta/internal/models"

// Conversation is an append-only sequence of messages. It is owned by a
// Controller and never shared without copying.
type Conversation struct {
	messages []models.Message
}

func NewConversation(messages []models.Message) *Conversation {
	return &Conversation{messages: append([]models.Message(nil), messages...)}
}

func (c *Conversation) Append(msg models.Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the sequence in display order.
func (c *Conversation) Messages() []models.Message {
	return append([]models.Message{}, c.messages...)
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) Last() (models.Message, bool) {
	if len(c.messages) == 0 {
		return models.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

func (c *Conversation) clear() {
	c.messages = nil
}
