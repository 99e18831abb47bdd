package cli

import (
	"os"
	"strconv"
)

// Config holds CLI configuration
type Config struct {
	// Addr is the server base URL used by client commands
	Addr string
	// Host and Port are the serve command's listen address
	Host string
	Port int
	// StorageType selects the storage backend ("memory" or "redis")
	StorageType string
	// RedisURL configures the redis backend
	RedisURL string
	// StaticDir serves the client files when non-empty
	StaticDir string
}

// DefaultConfig returns a Config populated from the environment
func DefaultConfig() *Config {
	return &Config{
		Addr:        getEnvOrDefault("DICEBOARD_ADDR", "http://localhost:8080"),
		Host:        os.Getenv("HOST"),
		Port:        getEnvIntOrDefault("PORT", 8080),
		StorageType: os.Getenv("STORAGE_TYPE"),
		RedisURL:    os.Getenv("REDIS_URL"),
		StaticDir:   getEnvOrDefault("STATIC_DIR", "public"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
