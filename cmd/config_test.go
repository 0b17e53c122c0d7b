package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiven4/autowatch/internal/output"
)

func setupConfigTest(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	origDirFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origDirFunc })

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetDefault("log_dir", filepath.Join(dir, "logs"))
	viper.SetDefault("db_path", filepath.Join(dir, "autowatch.db"))
	viper.SetDefault("tick_interval", "5s")
	viper.SetDefault("fetch_interval", "60s")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	out := &bytes.Buffer{}
	origUI := ui
	ui = &output.UI{Out: out, ErrOut: out}
	t.Cleanup(func() { ui = origUI })

	return dir, out
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir, _ := setupConfigTest(t)

	require.NoError(t, configInitRun())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# tick_interval: 5s")
	assert.Contains(t, content, "projects: []")
	assert.Contains(t, content, "anthropic:")
}

func TestConfigInit_RefusesOverwriteWithoutForce(t *testing.T) {
	setupConfigTest(t)

	require.NoError(t, configInitRun())
	err := configInitRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	configForce = true
	defer func() { configForce = false }()
	require.NoError(t, configInitRun())
}

func TestConfigShow_ReportsSources(t *testing.T) {
	dir, out := setupConfigTest(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tick_interval: 2s\n"), 0644))
	viper.SetConfigFile(cfgPath)
	require.NoError(t, viper.ReadInConfig())

	t.Setenv("AUTOWATCH_FETCH_INTERVAL", "30s")

	require.NoError(t, configShowRun())

	text := out.String()
	assert.Contains(t, text, "tick_interval")
	assert.Contains(t, text, "(file)")
	assert.Contains(t, text, "(env: AUTOWATCH_FETCH_INTERVAL)")
	assert.Contains(t, text, "(default)")
}

func TestFlattenKeys(t *testing.T) {
	result := make(map[string]bool)
	flattenKeys("", map[string]any{
		"log_dir": "/tmp/logs",
		"anthropic": map[string]any{
			"model": "claude-haiku-4-5-20251001",
		},
	}, result)

	assert.True(t, result["log_dir"])
	assert.True(t, result["anthropic.model"])
	assert.False(t, result["anthropic"])
}
