package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-charts/internal/generator"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "scoped", cfg.Generator.Mode)
	assert.Equal(t, "700px", cfg.Render.IframeHeight)
	assert.Equal(t, "Error al ejecutar el script de Python.", cfg.Render.ProcessErrorText)
	assert.True(t, cfg.Server.GenerateOnGet)
	assert.Zero(t, cfg.Cache.TTL)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartd.yaml")
	data := `
server:
  listen: ":9090"
  page: true
generator:
  interpreter: .\venv\Scripts\python.exe
  mode: shared
  timeout: 90s
  env:
    - PYTHONIOENCODING=utf-8
workspace:
  max_age: 1d
cache:
  ttl: 5m
render:
  iframe_height: 600px
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.True(t, cfg.Server.Page)
	assert.Equal(t, `.\venv\Scripts\python.exe`, cfg.Generator.Interpreter)
	assert.Equal(t, "shared", cfg.Generator.Mode)
	assert.Equal(t, 90*time.Second, cfg.Generator.Timeout.Std())
	assert.Equal(t, 24*time.Hour, cfg.Workspace.MaxAge.Std())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Std())
	assert.Equal(t, "600px", cfg.Render.IframeHeight)
	assert.Equal(t, []string{"PYTHONIOENCODING=utf-8"}, cfg.Generator.Env)

	// Untouched keys keep their defaults
	assert.Equal(t, generator.DefaultScript, cfg.Generator.Script)
	assert.Equal(t, 4, cfg.Generator.MaxConcurrent)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  timeout: soon\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("strings and durations", func(t *testing.T) {
		t.Setenv("CHART_INTERPRETER", "/opt/venv/bin/python")
		t.Setenv("CHART_MODE", "stdout")
		t.Setenv("CHART_TIMEOUT", "30s")
		t.Setenv("CHART_IFRAME_HEIGHT", "600px")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/opt/venv/bin/python", cfg.Generator.Interpreter)
		assert.Equal(t, "stdout", cfg.Generator.Mode)
		assert.Equal(t, 30*time.Second, cfg.Generator.Timeout.Std())
		assert.Equal(t, "600px", cfg.Render.IframeHeight)
	})

	t.Run("booleans", func(t *testing.T) {
		t.Setenv("CHART_GENERATE_ON_GET", "false")
		t.Setenv("CHART_LOG_JSON", "true")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.False(t, cfg.Server.GenerateOnGet)
		assert.True(t, cfg.Logging.JSON)
	})

	t.Run("empty interpreter restores system default", func(t *testing.T) {
		t.Setenv("CHART_INTERPRETER", "")

		cfg := Default()
		cfg.Generator.Interpreter = "/usr/bin/python3"
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Empty(t, cfg.Generator.Interpreter)
	})

	t.Run("invalid values are reported", func(t *testing.T) {
		t.Setenv("CHART_MAX_CONCURRENT", "many")
		t.Setenv("CHART_PAGE", "maybe")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CHART_MAX_CONCURRENT")
		assert.Contains(t, err.Error(), "CHART_PAGE")
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Listen = ""
	cfg.Server.Path = "chart"
	cfg.Generator.Mode = "tmpfile"
	cfg.Generator.Env = []string{"NOEQUALS"}
	cfg.Render.IframeHeight = ""
	cfg.Render.IdentifierPattern = "(["

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.listen", "server.path", "generator.mode", "generator.env", "render.iframe_height", "render.identifier_pattern"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":    0,
		"0":   0,
		"90s": 90 * time.Second,
		"2m":  2 * time.Minute,
		"1d":  24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDuration("later")
	assert.Error(t, err)
}

func TestGeneratorSettings(t *testing.T) {
	cfg := Default()
	cfg.Generator.Mode = "shared"
	settings := cfg.GeneratorSettings()
	assert.Equal(t, generator.ModeShared, settings.Mode)
	assert.Equal(t, 2*time.Minute, settings.Timeout)
	assert.Equal(t, generator.DefaultArtifactName, settings.ArtifactName)
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "shared", cfg.Generator.Mode)
	assert.Zero(t, cfg.Cache.TTL.Std())
}
