package infra

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/charadev96/walletd/internal/shared/log"
)

type txKey struct{}

func WithTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db bun.IDB) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return db
}

func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bun.Tx)
	return ok
}

// TxRunner runs callbacks inside one database transaction. Calls made
// while a transaction is already in ctx join it instead of nesting.
type TxRunner struct {
	DB      *bun.DB
	Options *sql.TxOptions
	Logger  *zerolog.Logger
}

func NewTxRunner(db *bun.DB, logger *zerolog.Logger) *TxRunner {
	return &TxRunner{DB: db, Logger: logger}
}

func (r *TxRunner) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	err := r.DB.RunInTx(ctx, r.Options, func(ctx context.Context, tx bun.Tx) error {
		return fn(WithTx(ctx, tx))
	})
	if err != nil {
		log.OrNop(r.Logger).Debug().Err(err).Msg("transaction rolled back")
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}
