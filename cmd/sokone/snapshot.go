package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/sokone/internal/database"
	"github.com/dukerupert/sokone/internal/snapshot"
)

func newImportCmd(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import browser-storage data (shop-master, shopping-list, cart-list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			blob, err := snapshot.Decode(f)
			if err != nil {
				return err
			}

			db, err := database.Open(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			mgr := snapshot.NewManager(snapshot.Config{}, db, a.logger.With("component", "snapshot"))
			res, err := mgr.Import(cmd.Context(), blob, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d shops, %d products, %d cart items (%d duplicates skipped)\n",
				res.Shops, res.Products, res.CartItems, res.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "empty the database before importing")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the database in browser-storage format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			blob, err := snapshot.NewManager(snapshot.Config{}, db, a.logger).Export()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(blob)
		},
	}
}
