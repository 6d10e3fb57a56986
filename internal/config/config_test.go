package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyDocumentGetsAllDefaults(t *testing.T) {
	path := writeConfig(t, "")
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 600, c.Backtest.TimeoutSeconds)
	assert.Equal(t, string(ExecutionLocal), c.Backtest.Mode)
	assert.Equal(t, 0.5, c.Gates.MinSharpe)
	assert.Equal(t, 0.5, c.Gates.MinConsistency)
	assert.Equal(t, 0.25, c.Gates.MaxDrawdown)
	assert.Equal(t, 0.05, c.Gates.MinCAGR)
	assert.Equal(t, 1, c.Statistical.Comparisons)
	assert.Equal(t, 0.05, c.Statistical.Alpha)
	assert.Equal(t, 3, c.Correction.MaxAttempts)
	assert.NotEmpty(t, c.WalkForward.WindowSet)
}

func TestLoad_ExplicitValuesOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `
backtest:
  timeout_seconds: 120
  mode: cloud
gates:
  min_sharpe: 1.0
statistical:
  comparisons: 3
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120, c.Backtest.TimeoutSeconds)
	assert.Equal(t, "cloud", c.Backtest.Mode)
	assert.Equal(t, 1.0, c.Gates.MinSharpe)
	assert.Equal(t, 0.25, c.Gates.MaxDrawdown, "unset gate fields still get defaulted")
	assert.Equal(t, 3, c.Statistical.Comparisons)
}

func TestLoad_MissingFileIsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGateThresholds_AdaptsToGateEvalShape(t *testing.T) {
	path := writeConfig(t, "")
	c, err := Load(path)
	require.NoError(t, err)

	gates := c.GateThresholds()
	assert.Equal(t, c.Gates.MinSharpe, gates.MinSharpe)
	assert.Equal(t, c.Gates.MaxDrawdown, gates.MaxDrawdown)
}
