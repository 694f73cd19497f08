// Command walletd runs the wallet companion API and manages the local PIN.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charadev96/walletd/internal/app"
	"github.com/charadev96/walletd/internal/shared/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "walletd",
		Short:         "Wallet companion API and local PIN gate",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is <user config dir>/walletd/walletd.toml or ./walletd.toml)")
	cmd.PersistentFlags().String("store", "", `store driver ("toml", "sqlite", "memory")`)
	cmd.PersistentFlags().String("store-path", "", "store file path")
	cmd.PersistentFlags().String("log-level", "", "log level")

	cmd.AddCommand(
		newServeCmd(opts),
		newPinCmd(opts),
		newQRCmd(),
		newConfigCmd(opts),
	)
	return cmd
}

func loadApp(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	cfg, err := config.Load(cmd, opts.configFile)
	if err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}
