// Package config resolves credentials and runtime settings once at startup.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Placeholder values mean "not configured". They are what an unedited .env
// template carries, so the services refuse to call out when they see them.
const (
	PlaceholderAPIKey         = "YOUR_API_KEY"
	PlaceholderSearchAPIKey   = "YOUR_SEARCH_API_KEY"
	PlaceholderSearchEngineID = "YOUR_SEARCH_ENGINE_ID"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-3-flash-preview"
)

// Config is immutable after Load.
type Config struct {
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	SearchAPIKey   string
	SearchEngineID string

	// Emulated selects the canned plan/report stages instead of live calls.
	Emulated bool

	Port          string
	HTTPTimeout   time.Duration
	SearchRatePS  float64
	SearchTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: could not read .env", slog.Any("error", err))
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() Config {
	c := Config{
		GeminiAPIKey:   getWithDefault("GEMINI_API_KEY", PlaceholderAPIKey),
		GeminiModel:    getWithDefault("GEMINI_MODEL", DefaultGeminiModel),
		GeminiBaseURL:  strings.TrimRight(getWithDefault("GEMINI_API_URL", DefaultGeminiBaseURL), "/"),
		SearchAPIKey:   getWithDefault("SEARCH_API_KEY", PlaceholderSearchAPIKey),
		SearchEngineID: getWithDefault("SEARCH_ENGINE_ID", PlaceholderSearchEngineID),
		Emulated:       isDevelopment(),
		Port:           getWithDefault("PORT", "8080"),
		HTTPTimeout:    durationMS("LLM_HTTP_TIMEOUT_MS", 120*time.Second),
		SearchRatePS:   float("SEARCH_RATE_PER_SEC", 5),
		SearchTimeout:  durationMS("SEARCH_TIMEOUT_MS", 15*time.Second),
	}
	return c
}

// GeminiConfigured reports whether a usable model API key is present.
func (c Config) GeminiConfigured() bool { return UsableAPIKey(c.GeminiAPIKey) }

// UsableAPIKey is false for an empty key and for the placeholder.
func UsableAPIKey(key string) bool {
	return key != "" && key != PlaceholderAPIKey
}

// SearchConfigured reports whether the search engine id is usable.
func (c Config) SearchConfigured() bool {
	return c.SearchEngineID != "" && c.SearchEngineID != PlaceholderSearchEngineID
}

// SearchKeyConfigured reports whether a search API key is present.
func (c Config) SearchKeyConfigured() bool {
	return c.SearchAPIKey != "" && c.SearchAPIKey != PlaceholderSearchAPIKey
}

func isDevelopment() bool {
	if v := strings.TrimSpace(os.Getenv("AI_EMULATOR")); v != "" {
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "dev", "development", "local":
		return true
	}
	return false
}

func getWithDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationMS(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func float(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}
