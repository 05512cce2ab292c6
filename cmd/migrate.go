package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the place index schema",
	Long:  "Creates the place tables and search indexes for the configured driver if they do not exist.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "migrate: open index")
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("place index schema is up to date", zap.String("driver", cfg.Index.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
