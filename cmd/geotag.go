package main

import (
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geopack/internal/document"
	"github.com/sells-group/geopack/internal/geoparse"
)

var geotagCmd = &cobra.Command{
	Use:   "geotag [text]",
	Short: "Extract and resolve the places mentioned in text",
	Long: `Finds place mentions in the given text, resolves each one against the place
index and prints one result per mention.

Text is taken from the arguments, from --file, or from stdin when neither is given
or --file is "-". Markdown, HTML, PDF and DOCX files are converted to plain text
first; any other file is read as is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geotag"); err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		text, err := readText(cmd.InOrStdin(), args, file)
		if err != nil {
			return err
		}

		extractor, err := initExtractor(ctx)
		if err != nil {
			return eris.Wrap(err, "geotag: init extractor")
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "geotag: open index")
		}
		defer store.Close() //nolint:errcheck

		idx, release := searchIndex(store)
		defer release()

		opts, asGeoJSON := parseFlags(cmd)
		results, err := geoparse.NewGeoParser(idx, extractor, parserConfig()).Parse(ctx, text, opts)
		if err != nil {
			return eris.Wrap(err, "geotag")
		}
		return writeResults(cmd.OutOrStdout(), results, asGeoJSON)
	},
}

// readText joins args, or reads file ("-" or "" with no args means stdin).
func readText(stdin io.Reader, args []string, file string) (string, error) {
	if len(args) > 0 && file == "" {
		return strings.Join(args, " "), nil
	}
	if file != "" && file != "-" {
		text, err := document.ReadFile(file)
		if err != nil {
			return "", eris.Wrap(err, "geotag: read text")
		}
		return text, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", eris.Wrap(err, "geotag: read text")
	}
	return string(data), nil
}

// parseFlags reads the flags shared by geotag and geoplace.
func parseFlags(cmd *cobra.Command) (geoparse.ParseOptions, bool) {
	lang, _ := cmd.Flags().GetString("lang")
	region, _ := cmd.Flags().GetBool("region")
	limit, _ := cmd.Flags().GetInt("limit")
	asGeoJSON, _ := cmd.Flags().GetBool("geojson")
	return geoparse.ParseOptions{Lang: lang, IncludeRegion: region, Limit: limit}, asGeoJSON
}

func addParseFlags(cmd *cobra.Command) {
	cmd.Flags().String("lang", "", "language of the input (ISO 639 code; empty or xx for unknown)")
	cmd.Flags().Bool("region", false, "annotate each result with its region")
	cmd.Flags().Int("limit", 0, "max hits per place query (0 = search.limit)")
	cmd.Flags().Bool("geojson", false, "print a GeoJSON FeatureCollection")
}

func init() {
	geotagCmd.Flags().String("file", "", "read text from a file (\"-\" for stdin)")
	addParseFlags(geotagCmd)
	rootCmd.AddCommand(geotagCmd)
}
