package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirebase = "firebase"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject            string
	FirebaseDatabaseURL        string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	// StoreBackend selects the document store, RealtimeBackend the message store.
	StoreBackend    string
	RealtimeBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RTDBPollInterval  time.Duration
	ResubscribeDelay  time.Duration
	BootstrapAdmin    string
	AdminChatID       string
	ChatbotURL        string
	ChatbotTimeout    time.Duration
	ChatbotPerMinute  int
	APIRatePerSecond  float64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabaseURL:        getEnv("FIREBASE_DATABASE_URL", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		StoreBackend:    getEnv("STORE_BACKEND", BackendFirebase),
		RealtimeBackend: getEnv("REALTIME_BACKEND", BackendFirebase),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       int(getEnvAsInt64("REDIS_DB", 0)),

		RTDBPollInterval: getEnvAsDuration("RTDB_POLL_INTERVAL", time.Second),
		ResubscribeDelay: getEnvAsDuration("RESUBSCRIBE_DELAY", 3*time.Second),
		BootstrapAdmin:   getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		AdminChatID:      getEnv("ADMIN_CHAT_ID", "admin_support"),
		ChatbotURL:       getEnv("CHATBOT_URL", "http://localhost:5000/chat"),
		ChatbotTimeout:   getEnvAsDuration("CHATBOT_TIMEOUT", 120*time.Second),
		ChatbotPerMinute: int(getEnvAsInt64("CHATBOT_RATE_PER_MINUTE", 20)),
		APIRatePerSecond: getEnvAsFloat("API_RATE_PER_SECOND", 20),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
