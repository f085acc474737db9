// Package store persists a conversation as one JSON document in a
// key-value slot. Reads never fail from the caller's point of view.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RichardoC/quanta/internal/models"
)

// Key is the versioned slot key. Bumping the version orphans older data.
const Key = "quanta.chat.v2"

var (
	ErrNotFound        = errors.New("store: no saved conversation")
	ErrCorrupt         = errors.New("store: saved conversation is unreadable")
	ErrVersionMismatch = errors.New("store: saved conversation has another version")
)

// Slot is a durable location addressed by key. Get returns ErrNotFound
// (or an error wrapping it) for an absent key.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Store struct {
	slot Slot
	key  string
}

func New(slot Slot) *Store {
	return &Store{slot: slot, key: Key}
}

// Load returns the saved conversation, or an empty one if anything is wrong
// with the slot or its contents.
func (s *Store) Load(ctx context.Context) []models.Message {
	messages, _ := s.LoadResult(ctx)
	return messages
}

// LoadResult is Load with the reason for an empty result.
func (s *Store) LoadResult(ctx context.Context) ([]models.Message, error) {
	data, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.Message{}, ErrNotFound
		}
		return []models.Message{}, fmt.Errorf("failed to read conversation: %w", err)
	}
	if len(data) == 0 {
		return []models.Message{}, ErrNotFound
	}

	messages, err := decode(data)
	if err != nil {
		return []models.Message{}, err
	}
	return messages, nil
}

// Save replaces the saved conversation with messages.
func (s *Store) Save(ctx context.Context, messages []models.Message) error {
	if messages == nil {
		messages = []models.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.slot.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	return nil
}

// Clear removes the saved conversation.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

func decode(data []byte) ([]models.Message, error) {
	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for i, msg := range messages {
		// A well-formed document written by another layout of Message still
		// decodes, so check the fields this version always writes.
		if msg.ID == "" || !msg.Role.Valid() {
			return nil, fmt.Errorf("%w: message %d", ErrVersionMismatch, i)
		}
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
