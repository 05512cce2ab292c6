package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geopack/internal/gazetteer"
)

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load Who's On First GeoJSON records into the place index",
	Long: `Walks a Who's On First data checkout (or a single .geojson file), converts each
record and upserts it into the place index. Records without coordinates are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("load"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "load: open index")
		}
		defer store.Close() //nolint:errcheck

		if skip, _ := cmd.Flags().GetBool("skip-migrate"); !skip {
			if err := store.Migrate(ctx); err != nil {
				return eris.Wrap(err, "load: migrate")
			}
		}

		workers, _ := cmd.Flags().GetInt("workers")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		includeAlt, _ := cmd.Flags().GetBool("include-alt")
		if workers <= 0 {
			workers = cfg.Loader.Workers
		}
		if batchSize <= 0 {
			batchSize = cfg.Loader.BatchSize
		}

		stats, err := gazetteer.LoadDir(ctx, store, args[0], gazetteer.LoadOptions{
			Workers:    workers,
			BatchSize:  batchSize,
			IncludeAlt: includeAlt,
		})
		if err != nil {
			return eris.Wrap(err, "load")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "files=%d loaded=%d skipped=%d failed=%d\n",
			stats.Files, stats.Loaded, stats.Skipped, stats.Failed)
		return nil
	},
}

func init() {
	loadCmd.Flags().Int("workers", 0, "parallel file parsers (0 = loader.workers)")
	loadCmd.Flags().Int("batch-size", 0, "places per upsert (0 = loader.batch_size)")
	loadCmd.Flags().Bool("include-alt", false, "also load alternate-geometry files")
	loadCmd.Flags().Bool("skip-migrate", false, "do not create the schema first")
	rootCmd.AddCommand(loadCmd)
}
