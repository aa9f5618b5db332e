package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	SecretKey    string
	Debug        bool
	AllowedHosts []string
	DatabaseURL  string
	CORSOrigins  []string
	Port         string

	// Media
	StorageBackend string // "local" or "minio"
	MediaRoot      string // Filesystem root for the local store
	MediaURL       string // URL prefix media objects are served under, e.g. "/media/"
	MaxUploadSize  int64  // Upper bound for a multipart request body, in bytes

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Redis backs the refresh token blacklist. Empty disables it.
	RedisURL string

	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blank entries.
// An unset or empty variable yields the fallback.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	// DEBUG follows the "True" convention of the deployment env files.
	debug := getEnv("DEBUG", "False") == "True"

	logLevel := getEnv("LOG_LEVEL", "info")
	if debug && os.Getenv("LOG_LEVEL") == "" {
		logLevel = "debug"
	}

	return &Config{
		SecretKey:    getEnv("SECRET_KEY", "dev"),
		Debug:        debug,
		AllowedHosts: getEnvList("ALLOWED_HOSTS", []string{"*"}),
		DatabaseURL:  getEnv("DATABASE_URL", "sqlite://moodwave.db"),
		CORSOrigins:  getEnvList("CORS_ORIGINS", nil),
		Port:         getEnv("PORT", "8000"),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		MediaRoot:      getEnv("MEDIA_ROOT", "media"),
		MediaURL:       getEnv("MEDIA_URL", "/media/"),
		MaxUploadSize:  getEnvInt64("MAX_UPLOAD_SIZE", 100<<20),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "moodwave"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisURL: os.Getenv("REDIS_URL"),

		AccessTokenLifetime:  getEnvDuration("ACCESS_TOKEN_LIFETIME", 6*time.Hour),
		RefreshTokenLifetime: getEnvDuration("REFRESH_TOKEN_LIFETIME", 14*24*time.Hour),

		LogLevel: logLevel,
		LogFile:  os.Getenv("LOG_FILE"),
	}
}
