package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/charadev96/walletd/internal/server"
	"github.com/charadev96/walletd/internal/server/handler/rest"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the optional admin health server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Observability.Init()

			httpCfg := server.HTTPConfig{
				Addr:   a.Config.Server.Addr,
				Logger: a.Logger("http"),
			}
			if sc := a.Config.Server; sc.TLSCert != "" {
				cert, err := server.LoadOrCreateCertificate(
					sc.TLSCert, sc.TLSKey, server.SelfSignedTemplate(), a.Logger("tls"))
				if err != nil {
					return err
				}
				httpCfg.Certificate = &cert
			}
			handler, _ := a.Handler()
			httpCfg.Handler = rest.NewRouter(handler)

			srv := server.New(
				httpCfg,
				server.AdminConfig{
					Addr:   a.Config.Server.AdminAddr,
					Logger: a.Logger("admin"),
				},
			)

			_, storeErr := a.Store(cmd.Context())
			if storeErr != nil {
				a.Logger("store").Warn().Err(storeErr).Msg("store unavailable")
			}
			srv.SetServing(server.ServiceStore, storeErr == nil)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.ServeAPI(ctx) })
			g.Go(func() error { return srv.ServeAdmin(ctx) })
			if err := g.Wait(); err != nil {
				a.Observability.CaptureError(err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().String("admin-addr", "", "admin gRPC listen address (empty disables)")
	cmd.Flags().String("tls-cert", "", "TLS certificate file, created self-signed when missing")
	cmd.Flags().String("tls-key", "", "TLS private key file, created when missing")
	cmd.Flags().Duration("timeout", 0, "upstream request timeout")
	return cmd
}
