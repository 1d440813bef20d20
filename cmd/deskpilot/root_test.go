package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themobileprof/deskpilot/internal/config"
)

// run executes the CLI against a throwaway home with dry-run effectors
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", filepath.Join(dir, "deskpilot.db"),
		"--catalog", filepath.Join(dir, "catalog"),
		"--dry-run",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestApplyOverrides_Flags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{
		"--db", "/tmp/x.db", "--dry-run", "--ai", "--ai-provider", "http", "--ai-timeout", "3s", "--debug",
	}))

	v := viper.New()
	bindFlags(v, cmd)
	cfg := config.Default()
	applyOverrides(cfg, v)

	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, config.ProviderHTTP, cfg.AI.Provider)
	assert.Equal(t, 3*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched values keep their defaults
	assert.Equal(t, config.Default().CatalogDir, cfg.CatalogDir)
}

func TestApplyOverrides_Env(t *testing.T) {
	t.Setenv("DESKPILOT_CATALOG_DIR", "/srv/catalog")
	t.Setenv("DESKPILOT_AI_ENDPOINT", "https://llm.example.com/v1")
	t.Setenv("DESKPILOT_HISTORY_LIMIT", "5")
	t.Setenv("GEMINI_API_KEY", "from-gemini-env")

	cmd := newRootCmd()
	v := viper.New()
	bindFlags(v, cmd)
	cfg := config.Default()
	applyOverrides(cfg, v)

	assert.Equal(t, "/srv/catalog", cfg.CatalogDir)
	assert.Equal(t, "https://llm.example.com/v1", cfg.AI.Endpoint)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, "from-gemini-env", cfg.AI.APIKey)
	assert.False(t, cfg.DryRun)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	t.Setenv("DESKPILOT_AI_ENABLED", "true")
	t.Setenv("DESKPILOT_AI_PROVIDER", "carrier-pigeon")

	cmd := newRootCmd()
	v := viper.New()
	bindFlags(v, cmd)
	_, err := loadConfig(filepath.Join(t.TempDir(), "config.yaml"), v)
	assert.ErrorContains(t, err, "unknown ai.provider")
}

func TestRoot_NaturalMode(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "natural", "maximize", "window")
	require.NoError(t, err)
	assert.Equal(t, "Maximized window\n", out)
}

func TestRoot_UnknownModeJoinsUtterance(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "open", "downloads")
	require.NoError(t, err)
	assert.Equal(t, "Opened Downloads\n", out)
}

func TestRoot_UnresolvedExitsNonZero(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "natural", "florp")
	assert.True(t, errors.Is(err, errCommandFailed))
	assert.Equal(t, "No matching action for \"florp\"\n", out)
}

func TestResolve_PrintsJSON(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "resolve", "please", "close", "tab")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "close tab", got["normalized"])
	assert.Equal(t, "rule", got["strategy"])
	action := got["action"].(map[string]any)
	assert.Equal(t, "close_tab", action["type"])
}

func TestSymbols_SetListUnset(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "symbols", "set", "party", "popper", "🎉")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ party popper = 🎉")

	// persisted across processes
	out, err = run(t, dir, "", "symbols", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "party popper")

	out, err = run(t, dir, "", "insert", "party", "popper")
	require.NoError(t, err)
	assert.Equal(t, "Inserted 🎉\n", out)

	out, err = run(t, dir, "", "symbols", "unset", "heart")
	require.NoError(t, err)
	assert.Contains(t, out, "Symbol heart removed.")

	out, err = run(t, dir, "", "symbols")
	require.NoError(t, err)
	assert.NotContains(t, out, "heart")

	_, err = run(t, dir, "", "symbols", "unset", "no such thing")
	assert.Error(t, err)
}

func TestHistory_ListsHandledCommands(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "", "close", "tab")
	require.NoError(t, err)

	out, err := run(t, dir, "", "history", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"close tab" | rule | ok`)

	out, err = run(t, dir, "", "history", "--prune", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pruned 0 entries older than 24h0m0s")
}

func TestMacros(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "macros")
	require.NoError(t, err)
	assert.Contains(t, out, "morning setup")

	out, err = run(t, dir, "", "macros", "start", "my", "day")
	require.NoError(t, err)
	assert.Contains(t, out, "morning setup (continue on error: true, delay: 500ms)")

	_, err = run(t, dir, "", "macros", "nope")
	assert.Error(t, err)
}

func TestREPLCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "close tab\nexit\n", "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Closed tab")
	assert.Contains(t, out, "Goodbye!")
}

func TestReset(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "close", "tab")
	require.NoError(t, err)

	out, err := run(t, dir, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset cancelled.")

	out, err = run(t, dir, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Database recreated")

	out, err = run(t, dir, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No commands handled yet.")
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "DeskPilot v"+version))
}
