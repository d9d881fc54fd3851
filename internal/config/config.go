package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings shared by the batch runner and the HTTP service.
type Config struct {
	LogLevel        string
	LogFormat       string
	Listen          string
	MaxDurationMS   uint64
	Scale           int
	Workers         int
	PaletteFile     string
	CacheTTL        time.Duration
	MetricsTextfile string
}

// Load reads the given .env files into the environment. With no paths,
// ".env" is used. A missing file is reported as an error which callers may ignore.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// FromEnv builds a Config from MPDVIZ_* environment variables, using
// defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		LogLevel:        GetEnv("MPDVIZ_LOG_LEVEL", "info"),
		LogFormat:       GetEnv("MPDVIZ_LOG_FORMAT", "json"),
		Listen:          GetEnv("MPDVIZ_LISTEN", ":8080"),
		MaxDurationMS:   uint64(GetEnvInt("MPDVIZ_MAX_DURATION_MS", 600_000)),
		Scale:           GetEnvInt("MPDVIZ_SCALE", 40),
		Workers:         GetEnvInt("MPDVIZ_WORKERS", 4),
		PaletteFile:     GetEnv("MPDVIZ_PALETTE", ""),
		CacheTTL:        GetEnvDuration("MPDVIZ_CACHE_TTL", 5*time.Minute),
		MetricsTextfile: GetEnv("MPDVIZ_METRICS_TEXTFILE", ""),
	}
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, negative or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses a Go duration string such as "90s".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}
