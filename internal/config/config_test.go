package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
)

const sample = `
server:
  port: 9090
  corsOrigins: ["https://app.example.com"]
database:
  driver: postgres
  host: db
  name: healthmate
  user: hm
minio:
  endpoint: minio:9000
  bucketName: reports
ai:
  provider: gemini
  model: gemini-2.0-flash
  timeout: 45s
analysis:
  maxConcurrent: 8
  reconcileInterval: 5m
texts:
  disclaimer: "Custom disclaimer"
auth:
  apiKeys:
    u1: key-one
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("yaml values with defaults filled", func(t *testing.T) {
		req := require.New(t)
		cfg, err := Load(writeConfig(t, sample))
		req.NoError(err)

		req.Equal(9090, cfg.Server.Port)
		req.Equal([]string{"https://app.example.com"}, cfg.Server.CORSOrigins)
		req.Equal(int64(10<<20), cfg.MaxUploadBytes())
		req.Equal("postgres", cfg.Database.Driver)
		req.Equal(5432, cfg.Database.Port)
		req.Equal("gemini", cfg.AI.Provider)
		req.Equal(45*time.Second, cfg.AI.Timeout)
		req.Equal(8, cfg.Analysis.MaxConcurrent)
		req.Equal(5*time.Minute, cfg.Analysis.ReconcileInterval)
		req.Equal(10*time.Minute, cfg.Analysis.GracePeriod)
		req.Equal("Custom disclaimer", cfg.Texts.Disclaimer)
		req.Equal(insight.DefaultFallbackQuestions, cfg.Texts.FallbackQuestions)
		req.Equal(map[string]string{"u1": "key-one"}, cfg.Auth.APIKeys)
		req.Equal("info", cfg.Log.Level)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("HEALTHMATE_DATABASE_PASSWORD", "s3cret")
		t.Setenv("HEALTHMATE_AI_API_KEY", "ai-key")
		t.Setenv("HEALTHMATE_AI_TIMEOUT", "2m")
		t.Setenv("HEALTHMATE_SERVER_RATE_LIMIT_CAPACITY", "5")
		t.Setenv("HEALTHMATE_MINIO_USE_SSL", "true")
		t.Setenv("HEALTHMATE_AUTH_API_KEYS", "u2:key-two")

		cfg, err := Load(writeConfig(t, sample))
		req.NoError(err)
		req.Equal("s3cret", cfg.Database.Password)
		req.Equal("ai-key", cfg.AI.APIKey)
		req.Equal(2*time.Minute, cfg.AI.Timeout)
		req.Equal(5, cfg.Server.RateLimit.Capacity)
		req.True(cfg.Minio.UseSSL)
		req.Equal("key-two", cfg.Auth.APIKeys["u2"])
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("unknown driver and provider are rejected", func(t *testing.T) {
		req := require.New(t)
		_, err := Load(writeConfig(t, "database:\n  driver: oracle\n"))
		req.ErrorContains(err, "oracle")

		_, err = Load(writeConfig(t, "database:\n  driver: sqlite\nai:\n  provider: llama\n"))
		req.ErrorContains(err, "llama")
	})

	t.Run("sqlite needs no host", func(t *testing.T) {
		req := require.New(t)
		cfg, err := Load(writeConfig(t, "database:\n  driver: sqlite\n"))
		req.NoError(err)
		req.Equal("healthmate.db", cfg.Database.Path)
		req.Equal("gemini", cfg.AI.Provider)
	})

	t.Run("fallback questions must be empty or exactly three", func(t *testing.T) {
		req := require.New(t)
		_, err := Load(writeConfig(t, "database:\n  driver: sqlite\ntexts:\n  fallbackQuestions: [\"only one?\"]\n"))
		req.ErrorContains(err, "fallbackQuestions")

		cfg, err := Load(writeConfig(t, "database:\n  driver: sqlite\ntexts:\n  fallbackQuestions: [a, b, c]\n"))
		req.NoError(err)
		req.Equal([]string{"a", "b", "c"}, cfg.Texts.FallbackQuestions)
	})

	t.Run("grace period must outlast the ai timeout", func(t *testing.T) {
		req := require.New(t)
		_, err := Load(writeConfig(t, "database:\n  driver: sqlite\nai:\n  timeout: 2m\nanalysis:\n  gracePeriod: 2m\n"))
		req.ErrorContains(err, "grace period")

		_, err = Load(writeConfig(t, "database:\n  driver: sqlite\nai:\n  timeout: 15m\n"))
		req.ErrorContains(err, "grace period")

		cfg, err := Load(writeConfig(t, "database:\n  driver: sqlite\nai:\n  timeout: 2m\nanalysis:\n  gracePeriod: 3m\n"))
		req.NoError(err)
		req.Equal(3*time.Minute, cfg.Analysis.GracePeriod)
	})
}
