// pkg/config/load_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a temporary config file
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tempFile := filepath.Join(t.TempDir(), "test_config.yaml")
	err := os.WriteFile(tempFile, []byte(content), 0644)
	require.NoError(t, err, "Failed to write temp config file")
	return tempFile
}

// clearEnv blanks every variable the loader reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_PATH", "DATABASE_OVERRIDE", "DATABASE_FOREIGNKEYS", "DATABASE_BUSYTIMEOUT",
		"LOGGING_LEVEL", "LOGGING_FORMAT", "SCHEMA_FILE",
	} {
		t.Setenv(EnvPrefix+"_"+key, "")
	}
}

// chdirTemp runs the test from an empty directory so no default file is found.
func chdirTemp(t *testing.T) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("EDGEMODEL_DATABASE_PATH", "edge.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	defaults := NewDefaultConfig()
	assert.Equal(t, "edge.db", cfg.Database.Path)
	assert.False(t, cfg.Database.Override)
	assert.Equal(t, defaults.Database.ForeignKeys, cfg.Database.ForeignKeys)
	assert.Equal(t, defaults.Database.BusyTimeout, cfg.Database.BusyTimeout)
	assert.Equal(t, defaults.Logging.Level, cfg.Logging.Level)
	assert.Equal(t, defaults.Logging.Format, cfg.Logging.Format)
	assert.Equal(t, defaults.Schema.File, cfg.Schema.File)
}

func TestLoadConfig_WithoutPath(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	// Commands that never open the database need no path.
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	configFile := createTempConfigFile(t, `
database:
  path: "/var/lib/edge/records.db"
  override: true
  foreignKeys: false
  busyTimeout: "250ms"
  options:
    _journal_mode: WAL
logging:
  level: "debug"
  format: "json"
schema:
  file: "declarations.yaml"
`)

	cfg, err := LoadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/edge/records.db", cfg.Database.Path)
	assert.True(t, cfg.Database.Override)
	assert.False(t, cfg.Database.ForeignKeys)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.BusyTimeout)
	assert.Equal(t, map[string]string{"_journal_mode": "WAL"}, cfg.Database.Options)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "declarations.yaml", cfg.Schema.File)
}

func TestLoadConfig_Precedence_EnvOverFileOverDefault(t *testing.T) {
	clearEnv(t)
	configFile := createTempConfigFile(t, `
database:
  path: "from-file.db"
logging:
  level: "debug"
schema:
  file: "file-models.yaml"
`)
	t.Setenv("EDGEMODEL_DATABASE_PATH", "from-env.db")
	t.Setenv("EDGEMODEL_LOGGING_LEVEL", "error")

	cfg, err := LoadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Database.Path, "Precedence: Env > File")
	assert.Equal(t, "error", cfg.Logging.Level, "Precedence: Env > File")
	assert.Equal(t, "file-models.yaml", cfg.Schema.File, "Precedence: File (not in env)")
	assert.Equal(t, NewDefaultConfig().Logging.Format, cfg.Logging.Format, "Precedence: Default")
}

func TestLoadConfig_Error_InvalidLoggingLevel(t *testing.T) {
	clearEnv(t)
	configFile := createTempConfigFile(t, `
database:
  path: "edge.db"
logging:
  level: "verbose"
`)
	_, err := LoadConfig(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Field 'Config.Logging.Level' failed validation on 'oneof'")
}

func TestLoadConfig_Error_SpecifiedFileNotFound(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "non_existent_config.yaml")
	_, err := LoadConfig(nonExistentPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading specified config file")
	assert.Contains(t, err.Error(), "non_existent_config.yaml")
}

func TestLoadConfig_Error_MalformedFile(t *testing.T) {
	configFile := createTempConfigFile(t, `
database:
  path: edge.db"
logging: level: debug
`)
	_, err := LoadConfig(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading specified config file")
	assert.NotContains(t, err.Error(), "error decoding configuration")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "table", "people")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"table":"people"`)

	buf.Reset()
	logger, err = NewLogger(LoggingConfig{}, &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
	assert.NotContains(t, buf.String(), "hidden")

	_, err = NewLogger(LoggingConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, err = NewLogger(LoggingConfig{Format: "xml"}, &buf)
	assert.Error(t, err)
}
