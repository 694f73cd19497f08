// Package app wires configuration into the long-lived components shared
// by the walletd commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	client "github.com/charadev96/walletd/internal/client/domain"
	"github.com/charadev96/walletd/internal/client/repository"
	"github.com/charadev96/walletd/internal/client/service"
	"github.com/charadev96/walletd/internal/server/handler/rest"
	"github.com/charadev96/walletd/internal/server/proxy"
	"github.com/charadev96/walletd/internal/shared/config"
	"github.com/charadev96/walletd/internal/shared/log"
	"github.com/charadev96/walletd/internal/shared/observability"
	"github.com/charadev96/walletd/internal/shared/ratelimit"
)

const (
	flushTimeout   = 2 * time.Second
	limiterIdleTTL = 10 * time.Minute
)

type App struct {
	Config        config.Config
	Observability *observability.Bootstrap

	loggers map[string]*zerolog.Logger
	store   *repository.Handle
}

func New(cfg config.Config) *App {
	a := &App{
		Config:  cfg,
		loggers: make(map[string]*zerolog.Logger),
	}
	a.Observability = observability.New(observability.Config{
		DSN:         cfg.Observability.DSN,
		Environment: cfg.Observability.Environment,
	}, a.Logger("obs"))
	return a
}

// Logger returns the shared logger for module, creating it on first use.
func (a *App) Logger(module string) *zerolog.Logger {
	if l, ok := a.loggers[module]; ok {
		return l
	}
	l := log.New(module, a.Config.Log.Level)
	a.loggers[module] = &l
	return &l
}

// Store opens the configured key-value store once.
func (a *App) Store(ctx context.Context) (*repository.Handle, error) {
	if a.store != nil {
		return a.store, nil
	}
	h, err := repository.Open(ctx, a.Config.Store.Driver, a.Config.Store.Path)
	if err != nil {
		return nil, err
	}
	a.Logger("store").Debug().
		Str("driver", a.Config.Store.Driver).
		Str("path", a.Config.Store.Path).
		Msg("opened store")
	a.store = h
	return h, nil
}

func (a *App) PinGate(ctx context.Context) (*service.PinGate, error) {
	h, err := a.Store(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open pin store: %w", err)
	}
	gate := service.NewPinGate(h.Store, h.TXRunner, a.Logger("pin"))
	gate.Policy = client.PinPolicy{
		MinLength:  a.Config.Pin.MinLength,
		MaxLength:  a.Config.Pin.MaxLength,
		DigitsOnly: a.Config.Pin.DigitsOnly,
	}
	return gate, nil
}

// Handler builds the HTTP API with its own metrics registry.
func (a *App) Handler() (*rest.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pc := a.Config.Proxy
	h := &rest.Handler{
		Proxy:    proxy.New(pc.Timeout, proxy.NewMetrics(reg), a.Logger("proxy")),
		Balance:  proxy.Balance(pc.BalanceURL),
		BTCTxs:   proxy.BTCTransactions(pc.BTCTxsURL),
		ETHTxs:   proxy.ETHTransactions(pc.ETHTxsURL, pc.EtherscanAPIKey),
		Limiter:  ratelimit.New(pc.RateLimitRPS, pc.RateLimitBurst, limiterIdleTTL),
		Gatherer: reg,
		Reporter: a.Observability,
		Logger:   a.Logger("http"),
	}
	return h, reg
}

// Close flushes pending reports and releases the store.
func (a *App) Close() error {
	a.Observability.Flush(flushTimeout)
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
