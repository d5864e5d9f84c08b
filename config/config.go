package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAllowedOrigins is the fixed CORS allow-list for the web frontend.
var DefaultAllowedOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
	"https://localhost",
	"https://159.89.17.67",
}

type Config struct {
	Port            string
	DatabaseURL     string
	OpenAIToken     string
	LLMModel        string
	OpenAIBaseURL   string
	UpstreamTimeout time.Duration
	LogLevel        string
	LogDir          string
	OTelEnabled     bool
	AllowedOrigins  []string
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	timeout, err := envDuration("UPSTREAM_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}

	otelEnabled, err := envBool("OTEL_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:            envString("PORT", "8000"),
		DatabaseURL:     envString("DATABASE_URL", "sqlite:///./dev.db"),
		OpenAIToken:     firstEnv("OPENAI_API_KEY", "OPENAI_TOKEN"),
		LLMModel:        envString("LLM_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:   strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		UpstreamTimeout: timeout,
		LogLevel:        strings.ToLower(envString("LOG_LEVEL", "info")),
		LogDir:          strings.TrimSpace(os.Getenv("LOG_DIR")),
		OTelEnabled:     otelEnabled,
		AllowedOrigins:  append([]string(nil), DefaultAllowedOrigins...),
	}

	return cfg, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, v)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
