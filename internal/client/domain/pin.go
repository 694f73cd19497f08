package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	KeySalt    = "pin.salt"
	KeyPinHash = "pin.hash"
)

var ErrInvalidPin = errors.New("invalid pin")

// Entry is one persisted key-value record.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// KeyValueStore is device-local persistent storage. Get returns an error
// wrapping shared domain.ErrNotExist for unknown keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// PinPolicy bounds accepted PINs by byte length. A zero MaxLength means
// no upper bound.
type PinPolicy struct {
	MinLength  int
	MaxLength  int
	DigitsOnly bool
}

var DefaultPinPolicy = PinPolicy{
	MinLength: 1,
}

func (p PinPolicy) Validate(pin string) error {
	minLen := p.MinLength
	if minLen < 1 {
		minLen = 1
	}
	if len(pin) < minLen {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPin, minLen)
	}
	if p.MaxLength > 0 && len(pin) > p.MaxLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidPin, p.MaxLength)
	}
	if p.DigitsOnly {
		for _, c := range pin {
			if c < '0' || c > '9' {
				return fmt.Errorf("%w: must contain digits only", ErrInvalidPin)
			}
		}
	}
	return nil
}
