// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// CORS
	AllowedOrigins []string

	// Rate Limiting
	RateLimitRPM       int
	RateLimitBurst     int
	StatusRateLimitRPM int

	// Worker Pool
	MaxWorkers   int
	MaxQueueSize int

	// Paths
	DownloadDir string
	DataDir     string

	// Sources
	RemoteAPIURL string
	YtDlpPath    string
	CookiesDir   string
	CookiesFile  string

	// Policy
	MaxVideoSize      int64
	MetadataCacheTTL  time.Duration
	CoalesceDownloads bool
	JobRetention      time.Duration
	PartialMaxAge     time.Duration

	// R2 Mirror
	R2AccountID        string
	R2AccessKeyID      string
	R2SecretAccessKey  string
	R2BucketName       string
	R2Endpoint         string
	PresignedURLExpiry time.Duration
}

// Load reads configuration from environment variables, loading .env first
// when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 30),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 5),
		StatusRateLimitRPM: getEnvInt("STATUS_RATE_LIMIT_RPM", 120),

		MaxWorkers:   getEnvInt("MAX_WORKERS", 3),
		MaxQueueSize: getEnvInt("MAX_QUEUE_SIZE", 20),

		DownloadDir: getEnv("DOWNLOAD_DIR", "downloads"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		RemoteAPIURL: getEnv("REMOTE_API_URL", "https://apikeyreal.vercel.app/api"),
		YtDlpPath:    getEnv("YTDLP_PATH", "yt-dlp"),
		CookiesDir:   getEnv("COOKIES_DIR", "cookies"),
		CookiesFile:  getEnv("COOKIES_FILE", ""),

		MaxVideoSize:      getEnvInt64("MAX_VIDEO_SIZE_MB", 100) * 1024 * 1024,
		MetadataCacheTTL:  time.Duration(getEnvInt("METADATA_CACHE_TTL", 60)) * time.Minute,
		CoalesceDownloads: getEnvBool("COALESCE_DOWNLOADS", false),
		JobRetention:      time.Duration(getEnvInt("JOB_RETENTION_HOURS", 24)) * time.Hour,
		PartialMaxAge:     time.Duration(getEnvInt("PARTIAL_MAX_AGE_MINUTES", 60)) * time.Minute,

		R2AccountID:        getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:      getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:  getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:       getEnv("R2_BUCKET_NAME", ""),
		R2Endpoint:         getEnv("R2_ENDPOINT", ""),
		PresignedURLExpiry: time.Duration(getEnvInt("PRESIGNED_URL_EXPIRY", 15)) * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxWorkers < 1 {
		errs = append(errs, errors.New("MAX_WORKERS must be at least 1"))
	}
	if c.MaxQueueSize < 1 {
		errs = append(errs, errors.New("MAX_QUEUE_SIZE must be at least 1"))
	}
	if c.MaxVideoSize <= 0 {
		errs = append(errs, errors.New("MAX_VIDEO_SIZE_MB must be positive"))
	}
	if c.RemoteAPIURL == "" {
		errs = append(errs, errors.New("REMOTE_API_URL must not be empty"))
	}
	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// MirrorEnabled reports whether the R2 mirror settings are complete.
func (c *Config) MirrorEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
