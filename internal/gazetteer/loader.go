package gazetteer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/placeindex"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 500
)

// LoadOptions configures a directory load.
type LoadOptions struct {
	Workers   int // parallel file parsers (default 4)
	BatchSize int // places per Upsert (default 500)
	// IncludeAlt also loads alternate-geometry files ("*-alt-*.geojson").
	IncludeAlt bool
}

// LoadStats summarizes a load.
type LoadStats struct {
	Files   int64
	Loaded  int64
	Skipped int64 // records without coordinates
	Failed  int64 // unreadable or malformed files
}

// LoadDir parses every WOF GeoJSON file under root and upserts the places
// into w in batches. Records without coordinates are skipped; bad files
// are counted and logged. A write error aborts the load.
func LoadDir(ctx context.Context, w placeindex.Writer, root string, opts LoadOptions) (LoadStats, error) {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	log := zap.L().With(zap.String("component", "gazetteer.loader"), zap.String("root", root))

	files, err := listFiles(root, opts.IncludeAlt)
	if err != nil {
		return LoadStats{}, err
	}

	var stats LoadStats
	stats.Files = int64(len(files))
	var skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	places := make(chan model.Place, opts.BatchSize)

	g.Go(func() error {
		batch := make([]model.Place, 0, opts.BatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := w.Upsert(gctx, batch)
			if err != nil {
				return eris.Wrapf(err, "gazetteer: upsert batch of %d", len(batch))
			}
			stats.Loaded += n
			log.Debug("gazetteer: batch written", zap.Int64("rows", n))
			batch = batch[:0]
			return nil
		}
		for p := range places {
			batch = append(batch, p)
			if len(batch) >= opts.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	parsers, pctx := errgroup.WithContext(gctx)
	parsers.SetLimit(opts.Workers)
	for _, path := range files {
		if pctx.Err() != nil {
			break
		}
		parsers.Go(func() error {
			p, err := parseFile(path)
			var missing *MissingDataError
			switch {
			case errors.As(err, &missing):
				skipped.Add(1)
				log.Warn("gazetteer: skipped record", zap.String("file", path), zap.Error(err))
				return nil
			case err != nil:
				failed.Add(1)
				log.Warn("gazetteer: bad file", zap.String("file", path), zap.Error(err))
				return nil
			}
			select {
			case places <- p:
				return nil
			case <-pctx.Done():
				return pctx.Err()
			}
		})
	}
	parseErr := parsers.Wait()
	close(places)

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if parseErr != nil {
		return stats, eris.Wrap(parseErr, "gazetteer: load")
	}

	stats.Skipped = skipped.Load()
	stats.Failed = failed.Load()
	log.Info("gazetteer: load complete",
		zap.Int64("files", stats.Files),
		zap.Int64("loaded", stats.Loaded),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("failed", stats.Failed),
	)
	return stats, nil
}

func parseFile(path string) (model.Place, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Place{}, eris.Wrapf(err, "gazetteer: read %s", path)
	}
	return ParseFeature(data)
}

// listFiles returns the .geojson files under root in lexical order. root
// may also be a single file.
func listFiles(root string, includeAlt bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: stat %s", root)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".geojson") {
			return nil
		}
		if !includeAlt && strings.Contains(d.Name(), "-alt-") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: walk %s", root)
	}
	return files, nil
}
