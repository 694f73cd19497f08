package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	shared "github.com/charadev96/walletd/internal/shared/domain"
)

const (
	permStore    = 0600
	permStoreDir = 0700
)

// TOMLStore keeps entries in a single TOML file and reloads it whenever the
// file's modification time changes underneath.
type TOMLStore struct {
	FilePath string

	mu         sync.Mutex
	data       schema
	modifiedAt time.Time
}

func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{FilePath: path}
}

func (r *TOMLStore) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refresh(); err != nil {
		return "", err
	}
	e, ok := r.data.Entries[key]
	if !ok {
		return "", fmt.Errorf("failed to get entry %q: %w", key, shared.ErrNotExist)
	}
	return e.Value, nil
}

func (r *TOMLStore) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refresh(); err != nil {
		return err
	}
	if r.data.Entries == nil {
		r.data.Entries = make(map[string]*entry)
	}
	r.data.Entries[key] = &entry{Value: value, UpdatedAt: time.Now().UTC()}
	return r.save()
}

func (r *TOMLStore) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refresh(); err != nil {
		return err
	}
	if _, ok := r.data.Entries[key]; !ok {
		return fmt.Errorf("failed to delete entry %q: %w", key, shared.ErrNotExist)
	}
	delete(r.data.Entries, key)
	return r.save()
}

type entry struct {
	Value     string    `toml:"value"`
	UpdatedAt time.Time `toml:"updated_at"`
}

type schema struct {
	Entries map[string]*entry `toml:"entries"`
}

func (r *TOMLStore) refresh() error {
	info, err := os.Stat(r.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		r.data = schema{}
		r.modifiedAt = time.Time{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file timestamp: %w", err)
	}
	modTime := info.ModTime()
	if r.modifiedAt.Equal(modTime) {
		return nil
	}
	var data schema
	if _, err := toml.DecodeFile(r.FilePath, &data); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	r.data = data
	r.modifiedAt = modTime
	return nil
}

func (r *TOMLStore) save() error {
	if err := os.MkdirAll(filepath.Dir(r.FilePath), permStoreDir); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	file, err := os.OpenFile(r.FilePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, permStore)
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	enc := toml.NewEncoder(file)
	enc.Indent = ""
	if err := enc.Encode(r.data); err != nil {
		file.Close()
		return fmt.Errorf("failed to save store: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	if info, err := os.Stat(r.FilePath); err == nil {
		r.modifiedAt = info.ModTime()
	}
	return nil
}
