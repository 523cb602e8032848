package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlop3z/ercat/internal/alerr"
)

// withFlags sets the global flags for one test.
func withFlags(t *testing.T, config, schemas string, verboseFlag, jsonFlag bool) {
	t.Helper()
	prev := []any{configFile, schemasDir, verbose, jsonOutput}
	configFile, schemasDir, verbose, jsonOutput = config, schemas, verboseFlag, jsonFlag
	t.Cleanup(func() {
		configFile, schemasDir = prev[0].(string), prev[1].(string)
		verbose, jsonOutput = prev[2].(bool), prev[3].(bool)
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	withFlags(t, filepath.Join(t.TempDir(), "missing.yaml"), "", false, false)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, &Config{Name: "catalog", SchemasDir: "./schemas", LogLevel: "info", Output: "text"}, cfg)
	assert.False(t, cfg.JSON())
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ercat.yaml")
	writeFile(t, dir, "ercat.yaml", "name: ${APP_NAME}\nschemas_dir: ./decl\nlog_level: warn\noutput: json\n")
	t.Setenv("APP_NAME", "shop")

	withFlags(t, path, "", false, false)
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.Name)
	assert.Equal(t, "./decl", cfg.SchemasDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.JSON())

	t.Setenv("ERCAT_SCHEMAS_DIR", "/env/schemas")
	t.Setenv("ERCAT_LOG_LEVEL", "error")
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/env/schemas", cfg.SchemasDir)
	assert.Equal(t, "error", cfg.LogLevel)

	withFlags(t, path, "/flag/schemas", true, false)
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/flag/schemas", cfg.SchemasDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "broken.yaml", "name: [unclosed\n")
	withFlags(t, filepath.Join(dir, "broken.yaml"), "", false, false)
	_, err := loadConfig()
	assert.True(t, alerr.Is(err, alerr.ErrParse))

	writeFile(t, dir, "output.yaml", "output: xml\n")
	withFlags(t, filepath.Join(dir, "output.yaml"), "", false, false)
	_, err = loadConfig()
	assert.True(t, alerr.Is(err, alerr.ErrMalformedProperty))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := (&Config{LogLevel: "warn"}).newLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = (&Config{LogLevel: "loud"}).newLogger(&buf)
	assert.True(t, alerr.Is(err, alerr.ErrMalformedProperty))
}
