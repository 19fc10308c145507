package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort          string
	FirebaseProject     string
	FirebaseCredentials string
	Environment         string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	KafkaBrokers           []string
	KafkaNotificationTopic string

	PresenceTimeoutSeconds int64
	MissedCallSeconds      int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		FirebaseProject:     getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		Environment:         getEnv("ENVIRONMENT", "development"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers:           getEnvAsList("KAFKA_BROKERS", nil),
		KafkaNotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "call-notifications"),

		PresenceTimeoutSeconds: getEnvAsInt64("PRESENCE_TIMEOUT_SECONDS", 5),
		MissedCallSeconds:      getEnvAsInt64("MISSED_CALL_SECONDS", 30),
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

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
