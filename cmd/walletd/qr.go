package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charadev96/walletd/internal/client/qr"
)

const permImage = 0644

func newQRCmd() *cobra.Command {
	var (
		size int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "qr <data>",
		Short: "Render data as a QR code",
		Long:  "Prints a PNG data URL, or writes the PNG to --out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				url, err := qr.GenerateDataURL(args[0], size)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}

			png, err := qr.Render(args[0], size)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, permImage); err != nil {
				return fmt.Errorf("failed to write image: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", qr.DefaultSize, "image width and height in pixels")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write PNG to file")
	return cmd
}
