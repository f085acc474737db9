// Package view projects a conversation into rendered chat bubbles.
package view

import (
	"github.com/RichardoC/quanta/internal/chat"
	"github.com/RichardoC/quanta/internal/markdown"
	"github.com/RichardoC/quanta/internal/models"
)

type Bubble struct {
	ID      string      `json:"id"`
	Role    models.Role `json:"role"`
	Avatar  string      `json:"avatar"`
	Content string      `json:"content"`
	HTML    string      `json:"html"`
	TS      int64       `json:"ts"`
}

func Render(msg models.Message) Bubble {
	avatar := "Q"
	if msg.Role == models.RoleUser {
		avatar = "U"
	}
	return Bubble{
		ID:      msg.ID,
		Role:    msg.Role,
		Avatar:  avatar,
		Content: msg.Content,
		HTML:    markdown.Render(msg.Content),
		TS:      msg.TS,
	}
}

func RenderAll(messages []models.Message) []Bubble {
	bubbles := make([]Bubble, 0, len(messages))
	for _, msg := range messages {
		bubbles = append(bubbles, Render(msg))
	}
	return bubbles
}

// Timeline is what a chat window shows at one point in time.
type Timeline struct {
	Bubbles []Bubble `json:"messages"`
	Typing  bool     `json:"typing"`
}

// FromSnapshot renders a full timeline from scratch.
func FromSnapshot(snap chat.Snapshot) Timeline {
	return Timeline{
		Bubbles: RenderAll(snap.Messages),
		Typing:  snap.State == chat.AwaitingReply,
	}
}

// Apply returns the timeline after ev. t is not modified.
func Apply(t Timeline, ev chat.Event) Timeline {
	switch ev.Kind {
	case chat.EventAppended:
		bubbles := make([]Bubble, len(t.Bubbles), len(t.Bubbles)+1)
		copy(bubbles, t.Bubbles)
		t.Bubbles = append(bubbles, Render(ev.Message))
	case chat.EventReset:
		t.Bubbles = []Bubble{}
		t.Typing = false
	case chat.EventTyping:
		t.Typing = ev.Typing
	}
	return t
}
