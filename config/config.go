package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the daemon configuration. Values come from the environment
// (optionally seeded by a .env file) with defaults that work out of the box
// against a local Redis and MySQL.
type Config struct {
	// HTTP control API
	ListenAddr string

	// Remote catalog
	DeezerAPIURL string

	// Lyrics providers, tried in order
	LrclibAPIURL   string
	LyricsOvhURL   string
	LyricsTimeout  time.Duration
	CatalogTimeout time.Duration

	// Playback engine tuning
	PrefetchCapacity int
	PrefetchDelay    time.Duration
	HistoryLimit     int

	// MySQL (track cache)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (collections persistence + artwork cache)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO (optional artwork mirror; disabled when endpoint is empty)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Auth: bcrypt hash of the operator password plus the JWT signing secret.
	// When OperatorHash is empty the mutating API is open (local use).
	OperatorHash string
	JWTSecret    string

	// Logging
	LogLevel  string
	LogPath   string
	EnvFile   string // watched by the config watcher; empty disables watching
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
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration (seconds when a
// bare integer, otherwise time.ParseDuration syntax) or returns fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or
// defaults. godotenv.Load does not override variables already set.
func Load() *Config {
	envFile := getEnv("MUSIC_APP_ENV", ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		DeezerAPIURL: getEnv("DEEZER_API_URL", "https://api.deezer.com"),

		LrclibAPIURL:   getEnv("LRCLIB_API_URL", "https://lrclib.net"),
		LyricsOvhURL:   getEnv("LYRICS_OVH_URL", "https://api.lyrics.ovh"),
		LyricsTimeout:  getEnvDuration("LYRICS_TIMEOUT", 10*time.Second),
		CatalogTimeout: getEnvDuration("CATALOG_TIMEOUT", 15*time.Second),

		PrefetchCapacity: getEnvInt("PREFETCH_CAPACITY", 3),
		PrefetchDelay:    getEnvDuration("PREFETCH_DELAY", 1500*time.Millisecond),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 50),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "musicapp"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "musicapp-artwork"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		OperatorHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		JWTSecret:    getEnv("JWT_SECRET", "musicapp-dev-secret"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", "logs/musicapp.log"),
		EnvFile:  envFile,
	}
}
