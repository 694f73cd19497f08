package domain

import (
	"context"
)

type TransactionRunner interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// DirectRunner runs fn without a transaction, for backends that have none.
type DirectRunner struct{}

func (DirectRunner) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
