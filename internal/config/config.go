package config

import (
	"os"
	"time"
)

// Config is populated from the environment. Every field has a usable default
// so the server comes up in demo mode with nothing configured.
type Config struct {
	Port           string
	DatabaseURL    string
	MigrationsPath string
	RedisAddr      string
	RedisTTL       time.Duration

	ModelBaseURL   string
	ReasonerAPIKey string
	ChatAPIKey     string
}

func Load() Config {
	cfg := Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "file://migrations"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisTTL:       24 * time.Hour,
		ModelBaseURL:   os.Getenv("DEEPSEEK_BASE_URL"),
		ReasonerAPIKey: getenv("REASONER_API_KEY", os.Getenv("DEEPSEEK_API_KEY")),
		ChatAPIKey:     getenv("CHAT_API_KEY", os.Getenv("DEEPSEEK_API_KEY")),
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.RedisTTL = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
