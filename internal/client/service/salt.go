package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	client "github.com/charadev96/walletd/internal/client/domain"
	shared "github.com/charadev96/walletd/internal/shared/domain"
)

const SaltSize = 16

// SaltStore owns the per-device salt. Once written the salt is never
// replaced: every stored PIN hash depends on it.
type SaltStore struct {
	Store client.KeyValueStore
	Rand  io.Reader
}

// Salt returns the persisted salt, reporting false when none exists yet.
func (s *SaltStore) Salt(ctx context.Context) (string, bool, error) {
	salt, err := s.Store.Get(ctx, client.KeySalt)
	if errors.Is(err, shared.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read salt: %w", err)
	}
	return salt, true, nil
}

func (s *SaltStore) GetOrCreateSalt(ctx context.Context) (string, error) {
	salt, ok, err := s.Salt(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		return salt, nil
	}

	rnd := s.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	buf := make([]byte, SaltSize)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt = hex.EncodeToString(buf)
	if err := s.Store.Set(ctx, client.KeySalt, salt); err != nil {
		return "", fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

func (s *SaltStore) Hash(text string) string {
	return Hash(text)
}

// Hash returns the lowercase hex SHA-256 digest of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
