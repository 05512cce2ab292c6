package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Index.Driver)
	assert.Equal(t, 3, cfg.Index.Retry.MaxAttempts)
	assert.Equal(t, 200, cfg.Index.Retry.InitialBackoffMs)
	assert.Equal(t, 2000, cfg.Index.Retry.MaxBackoffMs)
	assert.Equal(t, 10, cfg.Search.Limit)
	assert.Equal(t, []string{"-population", "-_score"}, cfg.Search.SortKeys)
	assert.Contains(t, cfg.Search.SourceFields, "belongsto")
	assert.Contains(t, cfg.Search.SourceFields, "geometry")
	assert.InDelta(t, 0.9, cfg.Disambiguate.Threshold, 0.001)
	assert.Equal(t, 10, cfg.Disambiguate.PairLimit)
	assert.Equal(t, 2, cfg.Disambiguate.TopPairs)
	assert.InDelta(t, 10.0, cfg.Disambiguate.Boost, 0.001)
	assert.Equal(t, ",", cfg.Disambiguate.Delimiter)
	assert.Equal(t, "rules", cfg.Extract.Backend)
	assert.Equal(t, "en", cfg.Extract.DefaultLang)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.InDelta(t, 2.0, cfg.Anthropic.RateLimit, 0.001)
	assert.Equal(t, 3600, cfg.Cache.TTLSecs)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 4, cfg.Loader.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
index:
  driver: sqlite
  database_url: places.db
search:
  limit: 25
disambiguate:
  threshold: 0.8
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Index.Driver)
	assert.Equal(t, "places.db", cfg.Index.DatabaseURL)
	assert.Equal(t, 25, cfg.Search.Limit)
	assert.InDelta(t, 0.8, cfg.Disambiguate.Threshold, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Disambiguate.TopPairs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
index:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GEOPACK_INDEX_DRIVER", "postgres")
	t.Setenv("GEOPACK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Index.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GEOPACK_SEARCH_LIMIT", "3")
	t.Setenv("GEOPACK_EXTRACT_BACKEND", "anthropic")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.Limit)
	assert.Equal(t, "anthropic", cfg.Extract.Backend)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	env := "GEOPACK_INDEX_DRIVER=sqlite\nGEOPACK_SEARCH_LIMIT=7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))
	t.Setenv("GEOPACK_SEARCH_LIMIT", "2")
	t.Cleanup(func() { os.Unsetenv("GEOPACK_INDEX_DRIVER") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Index.Driver)
	// Set variables win over .env
	assert.Equal(t, 2, cfg.Search.Limit)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("index: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Index.Driver = "sqlite"
	cfg.Search.Limit = 10
	cfg.Disambiguate.Threshold = 0.9
	cfg.Extract.Backend = "rules"
	cfg.Loader.Workers = 4
	return cfg
}

func TestValidate_SQLiteDefaults(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"geotag", "geoplace", "load", "migrate"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.Driver = "postgres"

	err := cfg.Validate("geoplace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.database_url is required")

	cfg.Index.DatabaseURL = "postgres://localhost/geo"
	assert.NoError(t, cfg.Validate("geoplace"))
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.Driver = "elasticsearch"

	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `got "elasticsearch"`)
}

func TestValidate_AnthropicNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.Backend = "anthropic"

	err := cfg.Validate("geotag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	// geoplace never extracts.
	assert.NoError(t, cfg.Validate("geoplace"))

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("geotag"))
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.Driver = "postgres"
	cfg.Disambiguate.Threshold = 1.5
	cfg.Extract.Backend = "anthropic"

	err := cfg.Validate("geotag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.database_url")
	assert.Contains(t, err.Error(), "anthropic.key")
	assert.Contains(t, err.Error(), "disambiguate.threshold")
}

func TestValidate_Load(t *testing.T) {
	cfg := validDefaults()
	cfg.Loader.Workers = 0

	err := cfg.Validate("load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader.workers")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
