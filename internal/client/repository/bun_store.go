package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/uptrace/bun"

	client "github.com/charadev96/walletd/internal/client/domain"
	shared "github.com/charadev96/walletd/internal/shared/domain"
	"github.com/charadev96/walletd/internal/shared/infra"
)

type BunStore struct {
	db *bun.DB
}

func NewBunStore(ctx context.Context, db *bun.DB) (*BunStore, error) {
	r := &BunStore{
		db: db,
	}
	tx := infra.Conn(ctx, r.db)
	_, err := tx.NewCreateTable().
		Model((*kvEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return r, fmt.Errorf("failed to create repository: %w", err)
	}
	return r, nil
}

// Runner returns a transaction runner bound to the store's database.
func (r *BunStore) Runner() shared.TransactionRunner {
	return infra.NewTxRunner(r.db, nil)
}

func (r *BunStore) Entry(ctx context.Context, key string) (client.Entry, error) {
	tx := infra.Conn(ctx, r.db)
	e := &kvEntry{Key: key}
	out := client.Entry{}
	err := tx.NewSelect().
		Model(e).
		WherePK().
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = shared.ErrNotExist
		}
		return out, fmt.Errorf("failed to get entry %q: %w", key, err)
	}
	copier.Copy(&out, e)
	return out, nil
}

func (r *BunStore) Get(ctx context.Context, key string) (string, error) {
	e, err := r.Entry(ctx, key)
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

func (r *BunStore) Set(ctx context.Context, key, value string) error {
	tx := infra.Conn(ctx, r.db)
	e := &kvEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := tx.NewInsert().
		Model(e).
		Replace().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save entry %q: %w", key, err)
	}
	return nil
}

func (r *BunStore) Delete(ctx context.Context, key string) error {
	tx := infra.Conn(ctx, r.db)
	e := &kvEntry{Key: key}
	res, err := tx.NewDelete().
		Model(e).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete entry %q: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to delete entry %q: %w", key, shared.ErrNotExist)
	}
	return nil
}

type kvEntry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Key       string    `bun:",pk"`
	Value     string    `bun:",notnull"`
	UpdatedAt time.Time `bun:",notnull"`
}
