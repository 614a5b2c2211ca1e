package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally via a .env file) with simple defaults.
type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO object storage (album covers)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string // base URL covers are served from

	// Vision extraction service
	VisionAPIURL string
	VisionAPIKey string

	// Scan pipeline tuning
	ScanMaxAttempts int           // total attempts per item, retries included
	ScanBackoffBase time.Duration // first retry delay, doubles per attempt
	ScanTimeout     time.Duration // per-request extraction timeout
	ScanInboxDir    string        // optional watched drop directory, empty disables
	ScanInboxBarID  int64         // bar the inbox watcher ingests into

	JWTSecret string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as duration (e.g. "2s") or
// returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "jukejoy"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "jukejoy"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", "http://127.0.0.1:9000/jukejoy"),

		VisionAPIURL: getEnv("VISION_API_URL", "http://127.0.0.1:9100/scan-album"),
		VisionAPIKey: os.Getenv("VISION_API_KEY"),

		ScanMaxAttempts: getEnvInt("SCAN_MAX_ATTEMPTS", 3),
		ScanBackoffBase: getEnvDuration("SCAN_BACKOFF_BASE", 2*time.Second),
		ScanTimeout:     getEnvDuration("SCAN_TIMEOUT", 60*time.Second),
		ScanInboxDir:    getEnv("SCAN_INBOX_DIR", ""),
		ScanInboxBarID:  int64(getEnvInt("SCAN_INBOX_BAR_ID", 0)),

		JWTSecret: getEnv("JWT_SECRET", "jukejoy-dev-secret"),
	}
}
