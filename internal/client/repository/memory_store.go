package repository

import (
	"context"
	"fmt"
	"sync"

	shared "github.com/charadev96/walletd/internal/shared/domain"
)

// MemoryStore is a process-local store; its contents die with the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return "", fmt.Errorf("failed to get entry %q: %w", key, shared.ErrNotExist)
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("failed to delete entry %q: %w", key, shared.ErrNotExist)
	}
	delete(s.entries, key)
	return nil
}
