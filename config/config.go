package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort         string
	AppMode         string
	LogMode         string
	ShutdownTimeout time.Duration

	WSReadLimit      int64
	WSPongWait       time.Duration
	WSWriteWait      time.Duration
	WSAllowedOrigins []string

	// Handshake rate limiting only runs when RedisAddr is set.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	WSConnectLimit  int
	WSConnectWindow time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:          getEnv("APP_PORT", "8000"),
		AppMode:          getEnv("APP_MODE", "debug"),
		LogMode:          getEnv("LOG_MODE", "development"),
		ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		WSReadLimit:      int64(getEnvAsInt("WS_READ_LIMIT", 4096)),
		WSPongWait:       getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
		WSWriteWait:      getEnvAsDuration("WS_WRITE_WAIT", 10*time.Second),
		WSAllowedOrigins: getEnvAsList("WS_ALLOWED_ORIGINS", []string{"*"}),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		WSConnectLimit:   getEnvAsInt("WS_CONNECT_LIMIT", 30),
		WSConnectWindow:  getEnvAsDuration("WS_CONNECT_WINDOW", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
