package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/sokone/internal/config"
	"github.com/dukerupert/sokone/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sokone",
		Short:         "Grocery price tracker and shopping list",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (yaml, toml or json)")

	root.AddCommand(
		newServeCmd(a),
		newScanCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
