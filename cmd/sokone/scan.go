package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/sokone/internal/scan"
)

func newScanCmd(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read one barcode from the configured reader and print where it leads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			route, err := a.scan(ctx, mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.cfg.BaseURL+route)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", `scan purpose; "add" opens product registration, anything else searches`)
	return cmd
}

func (a *app) scan(ctx context.Context, mode string) (string, error) {
	decoder := scan.NewLineDecoder(a.cfg.Scan.RearDevice, a.cfg.Scan.FrontDevice)
	session := scan.NewSession(decoder, mode, scan.Options{
		StartDelay: a.cfg.Scan.StartDelay,
		Logger:     a.logger.With("component", "scan"),
	})
	defer session.Close()

	route, err := session.Run(ctx)
	if err != nil {
		if _, msg := session.State(); msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}
	return route, nil
}
