// Package storage implements the process-local key-value persistence the
// engine loads once at start and writes back after every mutation.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Keys used by the engine.
const (
	KeySelectedRooms  = "selectedRooms"
	KeyInitialTime    = "initialTime"
	KeyAvailableRooms = "availableRooms"
	KeyBookingData    = "bookingData"
	KeyToken          = "token"
	KeyUser           = "user"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Store persists JSON-serialized values by key.
type Store interface {
	// Get decodes the value stored under key into out. found is false when
	// the key is absent.
	Get(ctx context.Context, key string, out any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data[key] = raw
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.data, key)
	return nil
}

// Close makes every later call fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Raw returns the encoded bytes stored under key.
func (s *MemoryStore) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return raw, ok
}
