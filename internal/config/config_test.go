package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yaml in reach

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 50.0, cfg.Server.RateLimit.RPS)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1e-6, cfg.Analysis.ConcentrationTolerance)
	assert.Equal(t, "results", cfg.Export.OutputDir)
	assert.True(t, cfg.Export.WriteCSV)
	assert.True(t, cfg.Export.WriteWorkbook)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MST_SERVER_PORT", "9090")
	t.Setenv("MST_LOGGING_LEVEL", "debug")
	t.Setenv("MST_ANALYSIS_CONCENTRATION_TOLERANCE", "1e-4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1e-4, cfg.Analysis.ConcentrationTolerance)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
analysis:
  concentration_column: "Dose [M]"
export:
  output_dir: out
`), 0644))
	t.Setenv("MST_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "Dose [M]", cfg.Analysis.ConcentrationColumn)
	assert.Equal(t, "out", cfg.Export.OutputDir)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "MST_SERVER_PORT", "70000"},
		{"bad log level", "MST_LOGGING_LEVEL", "verbose"},
		{"negative tolerance", "MST_ANALYSIS_CONCENTRATION_TOLERANCE", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, "mst_analysis.xlsx", cfg.Export.WorkbookName)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
}
