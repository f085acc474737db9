package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RichardoC/quanta/internal/db"
	"github.com/go-redis/redis/v8"
)

// DatabaseSlot keeps the conversation in the SQLite slots table.
type DatabaseSlot struct {
	db *db.Database
}

func NewDatabaseSlot(database *db.Database) *DatabaseSlot {
	return &DatabaseSlot{db: database}
}

func (s *DatabaseSlot) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.db.Get(ctx, key)
	if errors.Is(err, db.ErrNoValue) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *DatabaseSlot) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Set(ctx, key, value)
}

func (s *DatabaseSlot) Delete(ctx context.Context, key string) error {
	return s.db.Delete(ctx, key)
}

// RedisSlot keeps the conversation as a plain string value in Redis.
type RedisSlot struct {
	client *redis.Client
}

func NewRedisSlot(client *redis.Client) *RedisSlot {
	return &RedisSlot{client: client}
}

func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

func (s *RedisSlot) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisSlot) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// MemorySlot is a process-local slot. The zero value is ready to use.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (s *MemorySlot) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemorySlot) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemorySlot) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
