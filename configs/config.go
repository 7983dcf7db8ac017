package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Publishing struct {
	Concurrency    int
	AccountTimeout time.Duration
	PollInterval   time.Duration
	PollAttempts   int
}

type Webhooks struct {
	UserAgent      string
	HeaderPrefix   string
	Concurrency    int
	AutoRetry      bool
	RetryBatch     int
	DefaultTimeout time.Duration
}

type Config struct {
	InstagramClientID     string
	InstagramClientSecret string
	ThreadsClientID       string
	ThreadsClientSecret   string
	PinterestClientID     string
	PinterestClientSecret string
	TiktokClientKey       string
	TiktokClientSecret    string
	GoogleClientID        string
	GoogleClientSecret    string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	Port                  string
	R2                    R2
	SecretKey             string
	CookieName            string
	LogLevel              string
	LogFormat             string
	TickSpec              string
	TickLockTTL           time.Duration
	Publishing            Publishing
	Webhooks              Webhooks
}

func LoadConfig() *Config {
	return &Config{
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		ThreadsClientID:       getEnv("THREADS_CLIENT_ID", ""),
		ThreadsClientSecret:   getEnv("THREADS_CLIENT_SECRET", ""),
		PinterestClientID:     getEnv("PINTEREST_CLIENT_ID", ""),
		PinterestClientSecret: getEnv("PINTEREST_CLIENT_SECRET", ""),
		TiktokClientKey:       getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret:    getEnv("TIKTOK_CLIENT_SECRET", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		Port:                  getEnv("PORT", "3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		TickSpec:    getEnv("TICK_SPEC", "@every 1m"),
		TickLockTTL: getEnvDuration("TICK_LOCK_TTL", 5*time.Minute),
		Publishing: Publishing{
			Concurrency:    getEnvInt("PUBLISH_CONCURRENCY", 10),
			AccountTimeout: getEnvDuration("PUBLISH_ACCOUNT_TIMEOUT", 120*time.Second),
			PollInterval:   getEnvDuration("PROVIDER_POLL_INTERVAL", 2*time.Second),
			PollAttempts:   getEnvInt("PROVIDER_POLL_ATTEMPTS", 30),
		},
		Webhooks: Webhooks{
			UserAgent:      getEnv("WEBHOOK_USER_AGENT", "Postflow-Webhook/1.0"),
			HeaderPrefix:   getEnv("WEBHOOK_HEADER_PREFIX", "X-Postflow"),
			Concurrency:    getEnvInt("WEBHOOK_CONCURRENCY", 10),
			AutoRetry:      getEnvBool("WEBHOOK_AUTO_RETRY", true),
			RetryBatch:     getEnvInt("WEBHOOK_RETRY_BATCH", 50),
			DefaultTimeout: getEnvDuration("WEBHOOK_DEFAULT_TIMEOUT", 30*time.Second),
		},
	}
}

// SetupLogger installs the process wide slog handler.
func SetupLogger(cfg *Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
