package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml or .env is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/input/rrr_data.csv", cfg.Paths.Roster)
	assert.Equal(t, "data/output/rrr_data_with_websites.csv", cfg.Paths.Discovered)
	assert.Equal(t, "data/output/rrr_data_enriched.csv", cfg.Paths.Extracted)
	assert.Equal(t, "data/output/rrr_data_llm.csv", cfg.Paths.Enriched)
	assert.Equal(t, "duckduckgo", cfg.Discovery.Backend)
	assert.Equal(t, "Singapore", cfg.Discovery.Country)
	assert.Equal(t, ".sg", cfg.Discovery.Jurisdiction)
	assert.Equal(t, 8*time.Second, cfg.Discovery.DelayMin)
	assert.Equal(t, 15*time.Second, cfg.Discovery.DelayMax)
	assert.Equal(t, "SG", cfg.Extract.Region)
	assert.Equal(t, 15*time.Second, cfg.Extract.Timeout)
	assert.Equal(t, "chat", cfg.Enrich.Backend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Enrich.BaseURL)
	assert.Equal(t, "mistral", cfg.Enrich.Model)
	assert.Equal(t, []string{"ollama", "run", "mistral"}, cfg.Enrich.Command)
	assert.Equal(t, 60*time.Second, cfg.Enrich.Timeout)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 50, cfg.Load.BatchSize)
	assert.Equal(t, 5, cfg.Runner.DiscoverInterval)
	assert.Equal(t, 10, cfg.Runner.ExtractInterval)
	assert.Equal(t, 5, cfg.Runner.EnrichInterval)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/companies
discovery:
  backend: jina
  delay_min: 1s
  delay_max: 2s
log:
  level: debug
  format: console
load:
  batch_size: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/companies", cfg.Store.DatabaseURL)
	assert.Equal(t, "jina", cfg.Discovery.Backend)
	assert.Equal(t, time.Second, cfg.Discovery.DelayMin)
	assert.Equal(t, 2*time.Second, cfg.Discovery.DelayMax)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Load.BatchSize)
	// Defaults still apply for unset values
	assert.Equal(t, "Singapore", cfg.Discovery.Country)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ENRICH_STORE_DRIVER", "postgres")
	t.Setenv("ENRICH_LOG_LEVEL", "warn")
	t.Setenv("ENRICH_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENRICH_JINA_KEY=jina-from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("ENRICH_JINA_KEY") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "jina-from-dotenv", cfg.Jina.Key)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENRICH_SERVER_PORT=1111\n"), 0600))
	t.Setenv("ENRICH_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

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
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "data/companies.db"
	cfg.Discovery.Backend = "duckduckgo"
	cfg.Discovery.DelayMin = 8 * time.Second
	cfg.Discovery.DelayMax = 15 * time.Second
	cfg.Enrich.Backend = "chat"
	cfg.Enrich.Command = []string{"ollama", "run", "mistral"}
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	for _, cmd := range []string{"discover", "extract", "enrich", "load", "migrate", "serve", "pipeline"} {
		assert.NoError(t, cfg.Validate(cmd), cmd)
	}
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")

	// Stages that never touch the database ignore store settings.
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidate_Discovery(t *testing.T) {
	cfg := validDefaults()
	cfg.Discovery.Backend = "jina"
	cfg.Discovery.DelayMax = time.Second

	err := cfg.Validate("discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jina.key is required")
	assert.Contains(t, err.Error(), "delay_max")

	cfg.Jina.Key = "jina-key"
	cfg.Discovery.DelayMax = 20 * time.Second
	assert.NoError(t, cfg.Validate("discover"))

	cfg.Discovery.Backend = "bing"
	assert.Error(t, cfg.Validate("discover"))
}

func TestValidate_Enrich(t *testing.T) {
	cfg := validDefaults()
	cfg.Enrich.Backend = "anthropic"
	assert.ErrorContains(t, cfg.Validate("enrich"), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate("enrich"))

	cfg.Enrich.Backend = "command"
	cfg.Enrich.Command = nil
	assert.ErrorContains(t, cfg.Validate("enrich"), "enrich.command is required")

	cfg.Enrich.Backend = "magic"
	assert.ErrorContains(t, cfg.Validate("pipeline"), "enrich.backend must be")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate("serve"), "server.port")

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate("serve"))
}
