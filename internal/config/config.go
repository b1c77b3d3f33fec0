package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Port           string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	JWTSecret      string
	GinMode        string
	AllowedOrigins []string
}

// Load reads configuration from the environment. JWT_SECRET has no default
// on purpose: running with a guessable secret is worse than not starting.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "taskflow"),
		DBPassword:     getEnv("DB_PASSWORD", "taskflow"),
		DBName:         getEnv("DB_NAME", "taskflow"),
		JWTSecret:      secret,
		GinMode:        getEnv("GIN_MODE", "debug"),
		AllowedOrigins: splitEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
