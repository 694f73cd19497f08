package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	client "github.com/charadev96/walletd/internal/client/domain"
	shared "github.com/charadev96/walletd/internal/shared/domain"
)

func openStores(t *testing.T) map[string]client.KeyValueStore {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	h, err := Open(ctx, DriverSQLite, filepath.Join(dir, "kv.db"))
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	return map[string]client.KeyValueStore{
		"memory": NewMemoryStore(),
		"toml":   NewTOMLStore(filepath.Join(dir, "nested", "kv.toml")),
		"sqlite": h.Store,
	}
}

func TestStores_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, shared.ErrNotExist) {
				t.Fatalf("Get missing: expected ErrNotExist, got %v", err)
			}
			if err := store.Set(ctx, "a", "1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set(ctx, "a", "2"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := store.Get(ctx, "a")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != "2" {
				t.Fatalf("Get = %q, want %q", got, "2")
			}
			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, "a"); !errors.Is(err, shared.ErrNotExist) {
				t.Fatalf("Get after delete: expected ErrNotExist, got %v", err)
			}
			if err := store.Delete(ctx, "a"); !errors.Is(err, shared.ErrNotExist) {
				t.Fatalf("Delete missing: expected ErrNotExist, got %v", err)
			}
		})
	}
}

func TestTOMLStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.toml")
	store := NewTOMLStore(path)
	if err := store.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != permStore {
		t.Fatalf("file mode = %o, want %o", perm, permStore)
	}
}

func TestTOMLStore_ReloadsOnExternalChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.toml")
	store := NewTOMLStore(path)
	if err := store.Set(ctx, "k", "old"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	other := NewTOMLStore(path)
	if err := other.Set(ctx, "k", "new"); err != nil {
		t.Fatalf("Set via second handle: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "new" {
		t.Fatalf("Get = %q, want reloaded value %q", got, "new")
	}
}

func TestTOMLStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.toml")
	if err := os.WriteFile(path, []byte("entries = [not toml"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewTOMLStore(path).Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestBunStore_EntryTimestamps(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	store := h.Store.(*BunStore)

	before := time.Now().UTC().Add(-time.Second)
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e, err := store.Entry(ctx, "k")
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if e.Key != "k" || e.Value != "v" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.UpdatedAt.Before(before) {
		t.Fatalf("UpdatedAt %s not refreshed", e.UpdatedAt)
	}
}

func TestBunStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	boom := errors.New("boom")
	err = h.TXRunner.Exec(ctx, func(ctx context.Context) error {
		if err := h.Store.Set(ctx, "k", "v"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := h.Store.Get(ctx, "k"); !errors.Is(err, shared.ErrNotExist) {
		t.Fatalf("write inside rolled back tx is visible: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "redis", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(context.Background(), DriverTOML, ""); err == nil {
		t.Fatal("expected error for toml driver without path")
	}
}
