package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	client "github.com/charadev96/walletd/internal/client/domain"
	shared "github.com/charadev96/walletd/internal/shared/domain"
	"github.com/charadev96/walletd/internal/shared/log"
)

type PinGate struct {
	Salts    *SaltStore
	Store    client.KeyValueStore
	TXRunner shared.TransactionRunner
	Policy   client.PinPolicy
	Logger   *zerolog.Logger
}

func NewPinGate(store client.KeyValueStore, runner shared.TransactionRunner, logger *zerolog.Logger) *PinGate {
	return &PinGate{
		Salts:    &SaltStore{Store: store},
		Store:    store,
		TXRunner: runner,
		Policy:   client.DefaultPinPolicy,
		Logger:   logger,
	}
}

func (g *PinGate) SetPin(ctx context.Context, pin string) error {
	if err := g.Policy.Validate(pin); err != nil {
		return err
	}
	err := g.runner().Exec(ctx, func(ctx context.Context) error {
		return g.writePin(ctx, pin)
	})
	if err != nil {
		return err
	}
	log.OrNop(g.Logger).Info().Msg("pin set")
	return nil
}

func (g *PinGate) VerifyPin(ctx context.Context, pin string) (bool, error) {
	if g.Policy.Validate(pin) != nil {
		return false, nil
	}
	salt, ok, err := g.salts().Salt(ctx)
	if err != nil || !ok {
		return false, err
	}
	stored, err := g.Store.Get(ctx, client.KeyPinHash)
	if errors.Is(err, shared.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pin hash: %w", err)
	}
	computed := g.salts().Hash(salt + ":" + pin)
	match := subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	if !match {
		log.OrNop(g.Logger).Debug().Msg("pin verification failed")
	}
	return match, nil
}

// ChangePin replaces the PIN only when current verifies; a mismatch
// returns false and leaves the stored hash untouched.
func (g *PinGate) ChangePin(ctx context.Context, current, next string) (bool, error) {
	if err := g.Policy.Validate(next); err != nil {
		return false, err
	}
	changed := false
	err := g.runner().Exec(ctx, func(ctx context.Context) error {
		ok, err := g.VerifyPin(ctx, current)
		if err != nil || !ok {
			return err
		}
		if err := g.writePin(ctx, next); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		log.OrNop(g.Logger).Info().Msg("pin changed")
	}
	return changed, nil
}

// ResetPin overwrites the PIN without verifying the old one, keeping the
// existing salt. Callers must have authenticated the user some other way.
func (g *PinGate) ResetPin(ctx context.Context, next string) error {
	if err := g.Policy.Validate(next); err != nil {
		return err
	}
	err := g.runner().Exec(ctx, func(ctx context.Context) error {
		return g.writePin(ctx, next)
	})
	if err != nil {
		return err
	}
	log.OrNop(g.Logger).Warn().Msg("pin reset without verification")
	return nil
}

func (g *PinGate) HasPin(ctx context.Context) (bool, error) {
	_, err := g.Store.Get(ctx, client.KeyPinHash)
	if errors.Is(err, shared.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pin hash: %w", err)
	}
	return true, nil
}

func (g *PinGate) writePin(ctx context.Context, pin string) error {
	salt, err := g.salts().GetOrCreateSalt(ctx)
	if err != nil {
		return err
	}
	if err := g.Store.Set(ctx, client.KeyPinHash, g.salts().Hash(salt+":"+pin)); err != nil {
		return fmt.Errorf("failed to save pin hash: %w", err)
	}
	return nil
}

func (g *PinGate) runner() shared.TransactionRunner {
	if g.TXRunner == nil {
		return shared.DirectRunner{}
	}
	return g.TXRunner
}

func (g *PinGate) salts() *SaltStore {
	if g.Salts == nil {
		g.Salts = &SaltStore{Store: g.Store}
	}
	return g.Salts
}
