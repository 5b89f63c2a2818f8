package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment          string
	APIBaseURL           string
	RealtimeURL          string
	DataPath             string
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
	RequestTimeout       time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Environment:          getEnv("ENVIRONMENT", "development"),
		APIBaseURL:           getEnv("API_BASE_URL", "https://api.campusmarket.local/v1"),
		RealtimeURL:          getEnv("REALTIME_URL", "wss://api.campusmarket.local/v1/ws"),
		DataPath:             getEnv("DATA_PATH", "./data/campusmarket.db"),
		HeartbeatInterval:    getEnvAsDuration("HEARTBEAT_INTERVAL_SECONDS", 30) * time.Second,
		ReconnectBaseDelay:   getEnvAsDuration("RECONNECT_BASE_DELAY_MS", 1000) * time.Millisecond,
		ReconnectMaxDelay:    getEnvAsDuration("RECONNECT_MAX_DELAY_MS", 30000) * time.Millisecond,
		MaxReconnectAttempts: int(getEnvAsInt64("MAX_RECONNECT_ATTEMPTS", 5)),
		RequestTimeout:       getEnvAsDuration("REQUEST_TIMEOUT_SECONDS", 15) * time.Second,
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue int64) time.Duration {
	return time.Duration(getEnvAsInt64(key, defaultValue))
}
