// Package observability holds the process-wide error reporting bootstrap.
// A Bootstrap is created once per application and initialized at most once;
// without a DSN it does nothing beyond recording that it ran.
package observability

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/charadev96/walletd/internal/shared/log"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

type Bootstrap struct {
	cfg    Config
	logger *zerolog.Logger

	once        sync.Once
	initialized atomic.Bool
	enabled     atomic.Bool

	// initSDK is swapped in tests.
	initSDK func(sentry.ClientOptions) error
}

func New(cfg Config, logger *zerolog.Logger) *Bootstrap {
	return &Bootstrap{
		cfg:     cfg,
		logger:  log.OrNop(logger),
		initSDK: sentry.Init,
	}
}

// Init is safe to call any number of times from any goroutine. SDK
// failures, including panics, are logged and otherwise ignored.
func (b *Bootstrap) Init() {
	b.once.Do(func() {
		defer b.initialized.Store(true)
		defer func() {
			if r := recover(); r != nil {
				b.logger.Warn().Interface("panic", r).Msg("error reporting disabled")
			}
		}()

		dsn := strings.TrimSpace(b.cfg.DSN)
		if dsn == "" {
			b.logger.Debug().Msg("no dsn configured, error reporting disabled")
			return
		}
		err := b.initSDK(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: b.cfg.Environment,
			Release:     b.cfg.Release,
		})
		if err != nil {
			b.logger.Warn().Err(err).Msg("error reporting disabled")
			return
		}
		b.enabled.Store(true)
		b.logger.Info().Msg("error reporting enabled")
	})
}

func (b *Bootstrap) Initialized() bool {
	return b.initialized.Load()
}

// Enabled reports whether the SDK accepted the DSN.
func (b *Bootstrap) Enabled() bool {
	return b.enabled.Load()
}

// CaptureError forwards err when reporting is enabled.
func (b *Bootstrap) CaptureError(err error) {
	if err == nil || !b.Enabled() {
		return
	}
	sentry.CaptureException(err)
}

func (b *Bootstrap) Flush(timeout time.Duration) {
	if !b.Enabled() {
		return
	}
	sentry.Flush(timeout)
}
