package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/charadev96/walletd/internal/shared/log"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Health service names reported by the admin server.
const (
	ServiceHTTP  = "walletd.http"
	ServiceStore = "walletd.store"
)

// HTTPConfig serves plain HTTP unless Certificate is set.
type HTTPConfig struct {
	Addr        string
	Handler     http.Handler
	Certificate *tls.Certificate
	Logger      *zerolog.Logger
}

type AdminConfig struct {
	Addr   string
	Logger *zerolog.Logger
}

type Server struct {
	HTTP  HTTPConfig
	Admin AdminConfig

	Health *health.Server
}

func New(httpCfg HTTPConfig, adminCfg AdminConfig) *Server {
	return &Server{
		HTTP:   httpCfg,
		Admin:  adminCfg,
		Health: health.NewServer(),
	}
}

// SetServing updates the admin health status of one service.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(service, status)
}

// ServeAPI runs until ctx is cancelled, then drains in-flight requests.
func (s *Server) ServeAPI(ctx context.Context) error {
	logger := log.OrNop(s.HTTP.Logger)

	ln, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to init server: %w", err)
	}
	return s.serveAPI(ctx, ln, logger)
}

func (s *Server) serveAPI(ctx context.Context, ln net.Listener, logger *zerolog.Logger) error {
	srv := &http.Server{
		Handler:           s.HTTP.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if s.HTTP.Certificate != nil {
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.HTTP.Certificate},
			MinVersion:   tls.VersionTLS12,
		}
	}
	logger.Info().
		Str("address", ln.Addr().String()).
		Bool("tls", srv.TLSConfig != nil).
		Msg("started server")
	s.SetServing(ServiceHTTP, true)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.TLSConfig != nil {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		s.SetServing(ServiceHTTP, false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		s.SetServing(ServiceHTTP, false)
		return err
	}
}

// ServeAdmin exposes the gRPC health service and reflection. An empty
// address disables it.
func (s *Server) ServeAdmin(ctx context.Context) error {
	logger := log.OrNop(s.Admin.Logger)
	if s.Admin.Addr == "" {
		logger.Debug().Msg("admin server disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.Admin.Addr)
	if err != nil {
		return fmt.Errorf("failed to init server: %w", err)
	}
	return s.serveAdmin(ctx, ln, logger)
}

func (s *Server) serveAdmin(ctx context.Context, ln net.Listener, logger *zerolog.Logger) error {
	logger.Info().
		Str("address", ln.Addr().String()).
		Msg("started server")

	inst := grpc.NewServer()
	healthpb.RegisterHealthServer(inst, s.Health)
	reflection.Register(inst)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		s.Health.Shutdown()
		inst.GracefulStop()
	}()

	if err := inst.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
