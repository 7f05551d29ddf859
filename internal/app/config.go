package app

import (
	"strings"
	"time"

	"github.com/gearstack/partsmarket-backend/internal/platform/envutil"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

type Config struct {
	Mode           string
	Port           string
	AllowedOrigins []string

	JWTSecret string
	TokenTTL  time.Duration

	PublisherPollInterval time.Duration
	PublisherBatchSize    int
	PublisherMaxAttempts  int
	PublisherBackoffBase  time.Duration
	PublisherBackoffMax   time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	origins := envutil.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", log)
	return Config{
		Mode:           envutil.GetEnv("APP_MODE", "debug", log),
		Port:           envutil.GetEnv("PORT", "8080", log),
		AllowedOrigins: strings.Split(origins, ","),

		JWTSecret: envutil.GetEnv("JWT_SECRET", "dev-secret-change-me", log),
		TokenTTL:  envutil.GetEnvAsDuration("JWT_TTL", 24*time.Hour, log),

		PublisherPollInterval: envutil.GetEnvAsDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond, log),
		PublisherBatchSize:    envutil.GetEnvAsInt("OUTBOX_BATCH_SIZE", 64, log),
		PublisherMaxAttempts:  envutil.GetEnvAsInt("OUTBOX_MAX_ATTEMPTS", 8, log),
		PublisherBackoffBase:  envutil.GetEnvAsDuration("OUTBOX_BACKOFF_BASE", time.Second, log),
		PublisherBackoffMax:   envutil.GetEnvAsDuration("OUTBOX_BACKOFF_MAX", 5*time.Minute, log),
	}
}
