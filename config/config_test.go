package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "DATABASE_URL", "OPENAI_API_KEY", "OPENAI_TOKEN", "LLM_MODEL",
	"OPENAI_BASE_URL", "UPSTREAM_TIMEOUT", "LOG_LEVEL", "LOG_DIR", "OTEL_ENABLED",
}

// clearEnv blanks every key Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, "sqlite:///./dev.db", cfg.DatabaseURL)
	require.Empty(t, cfg.OpenAIToken)
	require.Equal(t, "gpt-3.5-turbo", cfg.LLMModel)
	require.Equal(t, 60*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.OTelEnabled)
	require.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "sqlite:////data/chat.db")
	t.Setenv("OPENAI_TOKEN", "sk-legacy")
	t.Setenv("UPSTREAM_TIMEOUT", "15s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "sqlite:////data/chat.db", cfg.DatabaseURL)
	require.Equal(t, "sk-legacy", cfg.OpenAIToken)
	require.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.OTelEnabled)
}

func TestLoad_APIKeyWinsOverLegacyToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-new")
	t.Setenv("OPENAI_TOKEN", "sk-legacy")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "sk-new", cfg.OpenAIToken)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, so unset
	// the ones the file provides.
	require.NoError(t, os.Unsetenv("LLM_MODEL"))
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LLM_MODEL=gpt-4o-mini\nOPENAI_API_KEY=sk-file\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("LLM_MODEL")
		_ = os.Unsetenv("OPENAI_API_KEY")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	require.Equal(t, "sk-file", cfg.OpenAIToken)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"UPSTREAM_TIMEOUT": "soon",
		"OTEL_ENABLED":     "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_NonPositiveTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "0s")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoad_AllowedOriginsIsACopy(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	cfg.AllowedOrigins[0] = "https://evil.example"
	require.Equal(t, "http://localhost", DefaultAllowedOrigins[0])
}
