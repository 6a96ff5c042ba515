package configs

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/internal/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "typeforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndShorthandSources(t *testing.T) {
	path := writeConfigFile(t, `
sources:
  - https://petstore.example.com/openapi.json
  - type: swagger
    name: legacy
    url: https://legacy.example.com/swagger.json
    headers:
      Authorization: Bearer token
    metadata:
      primary: true
output_dir: generated
extension: .mts
prefer: openapi
clean: true
`)
	t.Setenv("TYPEFORGE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "https://petstore.example.com/openapi.json", cfg.Sources[0].URL)
	assert.Equal(t, "swagger", cfg.Sources[1].Type)
	assert.Equal(t, "legacy", cfg.Sources[1].Name)
	assert.Equal(t, "Bearer token", cfg.Sources[1].Headers["Authorization"])
	assert.Equal(t, true, cfg.Sources[1].Metadata["primary"])

	assert.Equal(t, "generated", cfg.OutputDir)
	assert.Equal(t, ".mts", cfg.Extension)
	assert.Equal(t, "openapi", cfg.Prefer)
	require.NotNil(t, cfg.Clean)
	assert.True(t, *cfg.Clean)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
sources:
  - https://example.com/openapi.json
output_dir: from-file
`)
	t.Setenv("TYPEFORGE_CONFIG_FILE", path)
	t.Setenv("TYPEFORGE_OUTPUT_DIR", "from-env")
	t.Setenv("TYPEFORGE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OutputDir)
	assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("TYPEFORGE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, "client", cfg.OutputDir)
	assert.Nil(t, cfg.ContinueOnError)
	assert.Equal(t, slog.LevelInfo, cfg.ParsedLogLevel())
}

func TestLoad_SkipsInvalidSources(t *testing.T) {
	path := writeConfigFile(t, `
sources:
  - 42
  - name: empty-entry
  - url: https://valid.example.com/openapi.json
`)
	t.Setenv("TYPEFORGE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "https://valid.example.com/openapi.json", cfg.Sources[0].URL)
}

func TestSourceEntry_ToSourceConfig(t *testing.T) {
	t.Run("request form", func(t *testing.T) {
		entry := SourceEntry{
			Type:   "openapi",
			Name:   "pets",
			URL:    "https://example.com/openapi.json",
			Method: "POST",
			Query:  map[string]string{"version": "3"},
			Parse:  "json",
		}
		cfg := entry.ToSourceConfig()
		assert.Equal(t, domain.SourceKindOpenAPI, cfg.Type)
		assert.Equal(t, "pets", cfg.Name)
		require.NotNil(t, cfg.Source)
		require.NotNil(t, cfg.Source.Request)
		assert.Equal(t, "https://example.com/openapi.json", cfg.Source.Request.URL)
		assert.Equal(t, "POST", cfg.Source.Request.Method)
		assert.Equal(t, "3", cfg.Source.Request.Query["version"])
	})

	t.Run("inline document wins", func(t *testing.T) {
		entry := SourceEntry{
			URL:      "https://ignored.example.com",
			Document: map[string]interface{}{"openapi": "3.0.0"},
		}
		cfg := entry.ToSourceConfig()
		assert.Nil(t, cfg.Source)
		assert.NotNil(t, cfg.Document)
	})
}

func TestParsedLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, cfg.ParsedLogLevel(), tt.in)
	}
}
