package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/charadev96/walletd/internal/client/service"
)

var (
	errPinMismatch = errors.New("pins do not match")
	errWrongPin    = errors.New("wrong pin")
)

// promptPin reads a PIN without echoing it. Replaced in tests.
var promptPin = func(cmd *cobra.Command, label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}
	return p.Run()
}

func newPinCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the local access PIN",
	}

	var confirm bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Replace the PIN without knowing the current one",
		Args:  cobra.NoArgs,
		RunE: withGate(opts, func(cmd *cobra.Command, ctx context.Context, gate *service.PinGate) error {
			if !confirm {
				return errors.New("reset replaces the pin without verification, pass --confirm to proceed")
			}
			next, err := promptNewPin(cmd)
			if err != nil {
				return err
			}
			if err := gate.ResetPin(ctx, next); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pin reset")
			return nil
		}),
	}
	reset.Flags().BoolVar(&confirm, "confirm", false, "confirm the unverified reset")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Set the PIN for the first time",
			Args:  cobra.NoArgs,
			RunE: withGate(opts, func(cmd *cobra.Command, ctx context.Context, gate *service.PinGate) error {
				has, err := gate.HasPin(ctx)
				if err != nil {
					return err
				}
				if has {
					return errors.New("pin already set, use change or reset")
				}
				pin, err := promptNewPin(cmd)
				if err != nil {
					return err
				}
				if err := gate.SetPin(ctx, pin); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pin set")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Check a PIN against the stored one",
			Args:  cobra.NoArgs,
			RunE: withGate(opts, func(cmd *cobra.Command, ctx context.Context, gate *service.PinGate) error {
				pin, err := promptPin(cmd, "PIN")
				if err != nil {
					return err
				}
				ok, err := gate.VerifyPin(ctx, pin)
				if err != nil {
					return err
				}
				if !ok {
					return errWrongPin
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pin ok")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "change",
			Short: "Change the PIN after verifying the current one",
			Args:  cobra.NoArgs,
			RunE: withGate(opts, func(cmd *cobra.Command, ctx context.Context, gate *service.PinGate) error {
				current, err := promptPin(cmd, "Current PIN")
				if err != nil {
					return err
				}
				next, err := promptNewPin(cmd)
				if err != nil {
					return err
				}
				ok, err := gate.ChangePin(ctx, current, next)
				if err != nil {
					return err
				}
				if !ok {
					return errWrongPin
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pin changed")
				return nil
			}),
		},
		reset,
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a PIN is set",
			Args:  cobra.NoArgs,
			RunE: withGate(opts, func(cmd *cobra.Command, ctx context.Context, gate *service.PinGate) error {
				has, err := gate.HasPin(ctx)
				if err != nil {
					return err
				}
				if has {
					fmt.Fprintln(cmd.OutOrStdout(), "pin set")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "no pin set")
				}
				return nil
			}),
		},
	)
	return cmd
}

func withGate(
	opts *rootOptions,
	fn func(*cobra.Command, context.Context, *service.PinGate) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		gate, err := a.PinGate(ctx)
		if err != nil {
			return err
		}
		return fn(cmd, ctx, gate)
	}
}

func promptNewPin(cmd *cobra.Command) (string, error) {
	pin, err := promptPin(cmd, "New PIN")
	if err != nil {
		return "", err
	}
	again, err := promptPin(cmd, "Confirm PIN")
	if err != nil {
		return "", err
	}
	if pin != again {
		return "", errPinMismatch
	}
	return pin, nil
}
