package placeindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/db"
	"github.com/sells-group/geopack/internal/model"
)

// DefaultPostgresTable holds the gazetteer in Postgres.
const DefaultPostgresTable = "geo.places"

// Postgres searches places with Postgres full-text phrase queries.
type Postgres struct {
	pool  db.Pool
	table string
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open pool. An empty table selects DefaultPostgresTable.
func NewPostgres(pool db.Pool, table string) *Postgres {
	if table == "" {
		table = DefaultPostgresTable
	}
	return &Postgres{pool: pool, table: table}
}

const pgColumns = `id, name, names, names_lang, placetype, belongsto, hierarchy, parent_id,
	lat, lon, %s AS geometry, bbox, geomhash, iso_country, country, area, area_square_m,
	timezone, population, tags`

func (p *Postgres) columns(fields []string) string {
	geometry := "NULL::jsonb"
	if wants(fields, "geometry") {
		geometry = "geometry"
	}
	return fmt.Sprintf(pgColumns, geometry)
}

// searchSQL builds the multi_match equivalent: a phrase query over the
// primary name, the multilingual names and optionally one language's names.
func (p *Postgres) searchSQL(q Query) (string, error) {
	keys, err := parseSortKeys(q.SortKeys)
	if err != nil {
		return "", err
	}

	doc := "to_tsvector('simple', name || ' ' || coalesce(array_to_string(names, ' '), ''))"
	match := []string{
		"to_tsvector('simple', name) @@ q",
		"to_tsvector('simple', coalesce(array_to_string(names, ' '), '')) @@ q",
	}
	if q.UsesLang() {
		match = append(match, "to_tsvector('simple', coalesce(names_lang->>$3, '')) @@ q")
	}

	order := make([]string, 0, len(keys))
	for _, k := range keys {
		col := k.field
		if col == "_score" {
			col = "score"
		}
		dir := "ASC"
		if k.desc {
			dir = "DESC"
		}
		order = append(order, fmt.Sprintf("%s %s NULLS LAST", col, dir))
	}

	return fmt.Sprintf(`SELECT %s, ts_rank(%s, q) AS score
FROM %s, phraseto_tsquery('simple', $1) AS q
WHERE %s
ORDER BY %s
LIMIT $2`,
		p.columns(q.SourceFields),
		doc,
		db.SanitizeTable(p.table),
		strings.Join(match, "\n   OR "),
		strings.Join(order, ", "),
	), nil
}

// Search implements Index.
func (p *Postgres) Search(ctx context.Context, q Query) ([]model.Hit, error) {
	q = q.Normalized()
	query, err := p.searchSQL(q)
	if err != nil {
		return nil, err
	}

	args := []any{q.Text, q.Limit}
	if q.UsesLang() {
		args = append(args, q.Lang)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, Unavailable("search", eris.Wrap(err, "postgres: query"))
	}
	hits, err := scanPgHits(rows, true)
	if err != nil {
		return nil, Unavailable("search", err)
	}
	for i := range hits {
		hits[i].Project(q.SourceFields)
	}

	zap.L().Debug("postgres: search",
		zap.String("place", q.Text),
		zap.String("lang", q.Lang),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// Lookup implements Index.
func (p *Postgres) Lookup(ctx context.Context, ids []int64, fields []string) ([]model.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", p.columns(fields), db.SanitizeTable(p.table))
	rows, err := p.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, Unavailable("lookup", eris.Wrap(err, "postgres: query"))
	}
	hits, err := scanPgHits(rows, false)
	if err != nil {
		return nil, Unavailable("lookup", err)
	}
	for i := range hits {
		hits[i].Project(fields)
	}
	return hits, nil
}

func scanPgHits(rows pgx.Rows, withScore bool) ([]model.Hit, error) {
	defer rows.Close()

	var hits []model.Hit
	for rows.Next() {
		var (
			h                           model.Hit
			placetype                   string
			namesLang, hierarchy, geoms []byte
			geomhash, iso, country, tz  *string
		)
		dest := []any{
			&h.ID, &h.Name, &h.Names, &namesLang, &placetype, &h.Belongsto, &hierarchy, &h.ParentID,
			&h.Location.Lat, &h.Location.Lon, &geoms, &h.BBox, &geomhash, &iso, &country,
			&h.Area, &h.AreaSquareM, &tz, &h.Population, &h.Tags,
		}
		if withScore {
			dest = append(dest, &h.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}

		h.Placetype = model.Placetype(placetype)
		h.Geomhash, h.IsoCountry, h.Country, h.Timezone = deref(geomhash), deref(iso), deref(country), deref(tz)
		if len(geoms) > 0 {
			h.Geometry = json.RawMessage(geoms)
		}
		if err := decodeJSON(namesLang, &h.NamesLang); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode names_lang for %d", h.ID)
		}
		if err := decodeJSON(hierarchy, &h.Hierarchy); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode hierarchy for %d", h.ID)
		}
		if h.Belongsto == nil {
			h.Belongsto = []int64{}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate places")
	}
	return hits, nil
}

const pgMigration = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[2]s (
	id            BIGINT PRIMARY KEY,
	name          TEXT NOT NULL,
	names         TEXT[] NOT NULL DEFAULT '{}',
	names_lang    JSONB NOT NULL DEFAULT '{}',
	placetype     TEXT NOT NULL,
	belongsto     BIGINT[] NOT NULL DEFAULT '{}',
	hierarchy     JSONB NOT NULL DEFAULT '[]',
	parent_id     BIGINT,
	lat           DOUBLE PRECISION NOT NULL,
	lon           DOUBLE PRECISION NOT NULL,
	geometry      JSONB,
	bbox          DOUBLE PRECISION[],
	geomhash      TEXT,
	iso_country   TEXT,
	country       TEXT,
	area          DOUBLE PRECISION,
	area_square_m DOUBLE PRECISION,
	timezone      TEXT,
	population    BIGINT,
	tags          TEXT[],
	last_updated  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS %[3]s_name_fts ON %[2]s USING gin (to_tsvector('simple', name));
CREATE INDEX IF NOT EXISTS %[3]s_names_gin ON %[2]s USING gin (names);
CREATE INDEX IF NOT EXISTS %[3]s_population ON %[2]s (population DESC NULLS LAST);
`

// Migrate creates the schema, table and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	schema := "public"
	base := p.table
	if parts := strings.SplitN(p.table, ".", 2); len(parts) == 2 {
		schema, base = parts[0], parts[1]
	}
	ddl := fmt.Sprintf(pgMigration, pgx.Identifier{schema}.Sanitize(), db.SanitizeTable(p.table), base)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

var pgUpsertColumns = []string{
	"id", "name", "names", "names_lang", "placetype", "belongsto", "hierarchy", "parent_id",
	"lat", "lon", "geometry", "bbox", "geomhash", "iso_country", "country", "area",
	"area_square_m", "timezone", "population", "tags",
}

// Upsert implements Writer via a COPY-backed bulk upsert keyed on id.
func (p *Postgres) Upsert(ctx context.Context, places []model.Place) (int64, error) {
	rows := make([][]any, 0, len(places))
	for _, pl := range places {
		namesLang, err := json.Marshal(orEmptyMap(pl.NamesLang))
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode names_lang for %d", pl.ID)
		}
		hierarchy, err := json.Marshal(orEmptySlice(pl.Hierarchy))
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode hierarchy for %d", pl.ID)
		}
		var geometry any
		if len(pl.Geometry) > 0 {
			geometry = []byte(pl.Geometry)
		}
		belongsto := pl.Belongsto
		if belongsto == nil {
			belongsto = []int64{}
		}
		names := pl.Names
		if names == nil {
			names = []string{}
		}
		rows = append(rows, []any{
			pl.ID, pl.Name, names, namesLang, string(pl.Placetype), belongsto, hierarchy, pl.ParentID,
			pl.Location.Lat, pl.Location.Lon, geometry, pl.BBox, nilIfEmpty(pl.Geomhash),
			nilIfEmpty(pl.IsoCountry), nilIfEmpty(pl.Country), pl.Area, pl.AreaSquareM,
			nilIfEmpty(pl.Timezone), pl.Population, pl.Tags,
		})
	}

	n, err := db.BulkUpsert(ctx, p.pool, db.UpsertConfig{
		Table:        p.table,
		Columns:      pgUpsertColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert places")
	}
	return n, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmptyMap(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func orEmptySlice(h []model.Hierarchy) []model.Hierarchy {
	if h == nil {
		return []model.Hierarchy{}
	}
	return h
}
