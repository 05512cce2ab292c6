package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geopack/internal/geoparse"
	"github.com/sells-group/geopack/internal/model"
)

var geoplaceCmd = &cobra.Command{
	Use:   "geoplace <name> [name...]",
	Short: "Look up place names without text extraction",
	Long: `With one name, prints up to --limit candidate places in search order.
With several names, or with --together, resolves them as mentions of the same text
and prints one result per name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geoplace"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "geoplace: open index")
		}
		defer store.Close() //nolint:errcheck

		idx, release := searchIndex(store)
		defer release()

		opts, asGeoJSON := parseFlags(cmd)
		together, _ := cmd.Flags().GetBool("together")
		parser := geoparse.NewGeoParser(idx, nil, parserConfig())

		var results []model.ResolvedPlace
		if len(args) == 1 && !together {
			results, err = parser.ParsePlace(ctx, args[0], opts)
		} else {
			results, err = parser.ParsePlaces(ctx, args, opts)
		}
		if err != nil {
			return eris.Wrap(err, "geoplace")
		}
		return writeResults(cmd.OutOrStdout(), results, asGeoJSON)
	},
}

func init() {
	geoplaceCmd.Flags().Bool("together", false, "disambiguate the names against each other")
	addParseFlags(geoplaceCmd)
	rootCmd.AddCommand(geoplaceCmd)
}
