package repository

import (
	"context"
	"fmt"
	"io"
	"strings"

	client "github.com/charadev96/walletd/internal/client/domain"
	shared "github.com/charadev96/walletd/internal/shared/domain"
	"github.com/charadev96/walletd/internal/shared/infra"
)

const (
	DriverTOML   = "toml"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Handle bundles an opened store with its transaction runner and the
// resource that must be released when done.
type Handle struct {
	Store    client.KeyValueStore
	TXRunner shared.TransactionRunner

	closer io.Closer
}

func (h *Handle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

func Open(ctx context.Context, driver, path string) (*Handle, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverTOML:
		if path == "" {
			return nil, fmt.Errorf("failed to open store: toml driver requires a path")
		}
		return &Handle{Store: NewTOMLStore(path), TXRunner: shared.DirectRunner{}}, nil
	case DriverSQLite:
		if path == "" {
			path = ":memory:"
		}
		db, err := infra.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		store, err := NewBunStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &Handle{Store: store, TXRunner: store.Runner(), closer: db}, nil
	case DriverMemory:
		return &Handle{Store: NewMemoryStore(), TXRunner: shared.DirectRunner{}}, nil
	default:
		return nil, fmt.Errorf("failed to open store: unknown driver %q", driver)
	}
}
