// Package proxy relays address lookups to third-party blockchain explorer
// APIs. Each call is a single bounded attempt; callers turn the typed
// errors into client responses.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/charadev96/walletd/internal/shared/log"
)

const (
	DefaultTimeout = 5 * time.Second
	MaxBodyBytes   = 8 << 20
)

var errAddressRequired = &ValidationError{
	Field:   "address",
	Message: "Address parameter is required",
}

type Proxy struct {
	Client  *http.Client
	Timeout time.Duration
	Metrics *Metrics
	Logger  *zerolog.Logger
}

func New(timeout time.Duration, metrics *Metrics, logger *zerolog.Logger) *Proxy {
	return &Proxy{
		Client:  &http.Client{},
		Timeout: timeout,
		Metrics: metrics,
		Logger:  logger,
	}
}

// Fetch calls the endpoint for address and returns the upstream body
// unchanged. A blank address yields *ValidationError without any outbound
// request; every other failure is an *UpstreamError.
func (p *Proxy) Fetch(ctx context.Context, ep Endpoint, address string) ([]byte, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		p.Metrics.observe(ep.Name, outcomeInvalid, 0)
		return nil, errAddressRequired
	}

	start := time.Now()
	body, err := p.fetch(ctx, ep, address)
	elapsed := time.Since(start)
	if err != nil {
		p.Metrics.observe(ep.Name, outcomeUpstream, elapsed)
		p.logger().Warn().
			Err(err).
			Str("endpoint", ep.Name).
			Dur("elapsed", elapsed).
			Msg("upstream call failed")
		return nil, err
	}

	p.Metrics.observe(ep.Name, outcomeOK, elapsed)
	p.logger().Debug().
		Str("endpoint", ep.Name).
		Dur("elapsed", elapsed).
		Int("bytes", len(body)).
		Msg("upstream call succeeded")
	return body, nil
}

func (p *Proxy) fetch(ctx context.Context, ep Endpoint, address string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	upstreamErr := func(status int, err error) error {
		return &UpstreamError{Endpoint: ep.Name, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL(address), nil)
	if err != nil {
		return nil, upstreamErr(0, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, upstreamErr(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
		return nil, upstreamErr(resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, upstreamErr(0, fmt.Errorf("failed to read response: %w", err))
	}
	if len(body) > MaxBodyBytes {
		return nil, upstreamErr(0, errors.New("response body too large"))
	}
	if !json.Valid(body) {
		return nil, upstreamErr(0, errors.New("response body is not valid JSON"))
	}
	return body, nil
}

func (p *Proxy) client() *http.Client {
	if p.Client == nil {
		return http.DefaultClient
	}
	return p.Client
}

func (p *Proxy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

func (p *Proxy) logger() *zerolog.Logger {
	return log.OrNop(p.Logger)
}
