package placeindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/textclean"
)

// Name kinds stored in place_names.
const (
	kindName  = "name"
	kindNames = "names"
	kindLang  = "lang"
)

// SQLite is an embedded place index. Names are case-folded at load time and
// matched exactly or as a whole-word prefix ("cambridge" → "cambridge bay").
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens the index at dsn (a path or ":memory:").
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL,
	names         TEXT NOT NULL DEFAULT '[]',
	names_lang    TEXT NOT NULL DEFAULT '{}',
	placetype     TEXT NOT NULL,
	belongsto     TEXT NOT NULL DEFAULT '[]',
	hierarchy     TEXT NOT NULL DEFAULT '[]',
	parent_id     INTEGER,
	lat           REAL NOT NULL,
	lon           REAL NOT NULL,
	geometry      TEXT,
	bbox          TEXT,
	geomhash      TEXT,
	iso_country   TEXT,
	country       TEXT,
	area          REAL,
	area_square_m REAL,
	timezone      TEXT,
	population    INTEGER,
	tags          TEXT,
	last_updated  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS place_names (
	place_id    INTEGER NOT NULL REFERENCES places(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	lang        TEXT NOT NULL DEFAULT '',
	name_folded TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_place_names_folded ON place_names(name_folded);
CREATE INDEX IF NOT EXISTS idx_place_names_place ON place_names(place_id);
CREATE INDEX IF NOT EXISTS idx_places_population ON places(population);
`

// Migrate implements Writer.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

const sqliteColumns = `p.id, p.name, p.names, p.names_lang, p.placetype, p.belongsto, p.hierarchy,
	p.parent_id, p.lat, p.lon, %s, p.bbox, p.geomhash, p.iso_country, p.country, p.area,
	p.area_square_m, p.timezone, p.population, p.tags`

func sqliteSelect(fields []string) string {
	geometry := "NULL"
	if wants(fields, "geometry") {
		geometry = "p.geometry"
	}
	return fmt.Sprintf(sqliteColumns, geometry)
}

func (s *SQLite) searchSQL(q Query) (string, error) {
	keys, err := parseSortKeys(q.SortKeys)
	if err != nil {
		return "", err
	}

	kinds := "n.kind IN ('name', 'names')"
	if q.UsesLang() {
		kinds = "(n.kind IN ('name', 'names') OR (n.kind = 'lang' AND n.lang = ?3))"
	}

	order := make([]string, 0, len(keys))
	for _, k := range keys {
		col := "p." + k.field
		if k.field == "_score" {
			col = "score"
		}
		dir := "ASC"
		if k.desc {
			dir = "DESC"
		}
		order = append(order, fmt.Sprintf("%s IS NULL, %s %s", col, col, dir))
	}

	return fmt.Sprintf(`SELECT %s,
	MAX(CASE n.kind WHEN 'name' THEN 1.0 WHEN 'lang' THEN 0.9 ELSE 0.8 END *
	    CASE WHEN n.name_folded = ?1 THEN 1.0 ELSE 0.5 END) AS score
FROM place_names n
JOIN places p ON p.id = n.place_id
WHERE (n.name_folded = ?1 OR substr(n.name_folded, 1, length(?1) + 1) = ?1 || ' ')
  AND %s
GROUP BY p.id
ORDER BY %s
LIMIT ?2`, sqliteSelect(q.SourceFields), kinds, strings.Join(order, ", ")), nil
}

// Search implements Index.
func (s *SQLite) Search(ctx context.Context, q Query) ([]model.Hit, error) {
	q = q.Normalized()
	query, err := s.searchSQL(q)
	if err != nil {
		return nil, err
	}

	args := []any{textclean.Fold(textclean.Clean(q.Text)), q.Limit}
	if q.UsesLang() {
		args = append(args, q.Lang)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Unavailable("search", eris.Wrap(err, "sqlite: query"))
	}
	hits, err := scanSQLiteHits(rows, true)
	if err != nil {
		return nil, Unavailable("search", err)
	}
	for i := range hits {
		hits[i].Project(q.SourceFields)
	}

	zap.L().Debug("sqlite: search",
		zap.String("place", q.Text),
		zap.String("lang", q.Lang),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// Lookup implements Index.
func (s *SQLite) Lookup(ctx context.Context, ids []int64, fields []string) ([]model.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM places p WHERE p.id IN (%s)", sqliteSelect(fields), strings.Join(marks, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Unavailable("lookup", eris.Wrap(err, "sqlite: query"))
	}
	hits, err := scanSQLiteHits(rows, false)
	if err != nil {
		return nil, Unavailable("lookup", err)
	}
	for i := range hits {
		hits[i].Project(fields)
	}
	return hits, nil
}

func scanSQLiteHits(rows *sql.Rows, withScore bool) ([]model.Hit, error) {
	defer rows.Close()

	var hits []model.Hit
	for rows.Next() {
		var (
			h                                 model.Hit
			placetype                         string
			names, namesLang, belongsto, hier string
			parentID, population              sql.NullInt64
			geometry, bbox, tags              sql.NullString
			geomhash, iso, country, tz        sql.NullString
			area, areaM                       sql.NullFloat64
		)
		dest := []any{
			&h.ID, &h.Name, &names, &namesLang, &placetype, &belongsto, &hier, &parentID,
			&h.Location.Lat, &h.Location.Lon, &geometry, &bbox, &geomhash, &iso, &country,
			&area, &areaM, &tz, &population, &tags,
		}
		if withScore {
			dest = append(dest, &h.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}

		h.Placetype = model.Placetype(placetype)
		h.Geomhash, h.IsoCountry, h.Country, h.Timezone = geomhash.String, iso.String, country.String, tz.String
		if parentID.Valid {
			h.ParentID = &parentID.Int64
		}
		if population.Valid {
			h.Population = &population.Int64
		}
		if area.Valid {
			h.Area = &area.Float64
		}
		if areaM.Valid {
			h.AreaSquareM = &areaM.Float64
		}
		if geometry.Valid && geometry.String != "" {
			h.Geometry = json.RawMessage(geometry.String)
		}
		for _, f := range []struct {
			raw string
			v   any
		}{
			{names, &h.Names},
			{namesLang, &h.NamesLang},
			{belongsto, &h.Belongsto},
			{hier, &h.Hierarchy},
			{bbox.String, &h.BBox},
			{tags.String, &h.Tags},
		} {
			if err := decodeJSON([]byte(f.raw), f.v); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode place %d", h.ID)
			}
		}
		if h.Belongsto == nil {
			h.Belongsto = []int64{}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate places")
	}
	return hits, nil
}

// Upsert implements Writer. Each place replaces any previous row with the
// same id together with its folded names.
func (s *SQLite) Upsert(ctx context.Context, places []model.Place) (int64, error) {
	if len(places) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, pl := range places {
		if err := upsertSQLitePlace(ctx, tx, pl); err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func upsertSQLitePlace(ctx context.Context, tx *sql.Tx, pl model.Place) error {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	belongsto := pl.Belongsto
	if belongsto == nil {
		belongsto = []int64{}
	}
	var encoded [6]string
	for i, v := range []any{orEmptyStrings(pl.Names), orEmptyMap(pl.NamesLang), belongsto, orEmptySlice(pl.Hierarchy), pl.BBox, pl.Tags} {
		s, err := enc(v)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode place %d", pl.ID)
		}
		encoded[i] = s
	}
	var geometry any
	if len(pl.Geometry) > 0 {
		geometry = string(pl.Geometry)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM place_names WHERE place_id = ?", pl.ID); err != nil {
		return eris.Wrapf(err, "sqlite: clear names for %d", pl.ID)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO places (
		id, name, names, names_lang, placetype, belongsto, hierarchy, parent_id, lat, lon,
		geometry, bbox, geomhash, iso_country, country, area, area_square_m, timezone,
		population, tags, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name, names = excluded.names, names_lang = excluded.names_lang,
		placetype = excluded.placetype, belongsto = excluded.belongsto, hierarchy = excluded.hierarchy,
		parent_id = excluded.parent_id, lat = excluded.lat, lon = excluded.lon,
		geometry = excluded.geometry, bbox = excluded.bbox, geomhash = excluded.geomhash,
		iso_country = excluded.iso_country, country = excluded.country, area = excluded.area,
		area_square_m = excluded.area_square_m, timezone = excluded.timezone,
		population = excluded.population, tags = excluded.tags, last_updated = excluded.last_updated`,
		pl.ID, pl.Name, encoded[0], encoded[1], string(pl.Placetype), encoded[2], encoded[3], pl.ParentID,
		pl.Location.Lat, pl.Location.Lon, geometry, encoded[4], nilIfEmpty(pl.Geomhash),
		nilIfEmpty(pl.IsoCountry), nilIfEmpty(pl.Country), pl.Area, pl.AreaSquareM,
		nilIfEmpty(pl.Timezone), pl.Population, encoded[5],
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert place %d", pl.ID)
	}

	insert := func(kind, lang, name string) error {
		folded := textclean.Fold(textclean.Clean(name))
		if folded == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO place_names (place_id, kind, lang, name_folded) VALUES (?, ?, ?, ?)",
			pl.ID, kind, lang, folded)
		return eris.Wrapf(err, "sqlite: insert name for %d", pl.ID)
	}
	if err := insert(kindName, "", pl.Name); err != nil {
		return err
	}
	for _, n := range pl.Names {
		if err := insert(kindNames, "", n); err != nil {
			return err
		}
	}
	for lang, names := range pl.NamesLang {
		for _, n := range names {
			if err := insert(kindLang, strings.ToLower(lang), n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
