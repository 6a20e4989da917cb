package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultModel           = "gemini-2.0-flash-preview-image-generation"
	defaultMaxUploadBytes  = 10 * 1024 * 1024
	defaultProviderTimeout = 5 * time.Minute
)

type Config struct {
	ListenAddr      string
	GeminiAPIKey    string
	GeminiModel     string
	TempDir         string
	MaxUploadBytes  int64
	ProviderTimeout time.Duration
	LogLevel        string
	LogFile         string
}

// Load reads the process environment. It is called once at startup, after
// any .env file has been applied.
func Load() *Config {
	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8000"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", defaultModel),
		TempDir:         getEnv("SOLARSCAN_TEMP_DIR", filepath.Join(os.TempDir(), "solarscan")),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", defaultProviderTimeout),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}
}

// Validate reports configuration that would make the provider unusable.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY environment variable not set")
	}
	if c.GeminiModel == "" {
		return errors.New("GEMINI_MODEL must not be empty")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n <= 0 {
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		slog.Warn("Ignoring invalid duration setting", "key", key, "value", val)
		return defaultVal
	}
	return d
}
