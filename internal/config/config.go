package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	DatabaseDriver string
	RedisURL       string
	JWTSecret      string
	JWTExpiry      time.Duration
	ServerPort     string
	Environment    string
	CORSOrigins    []string

	// Confirmation codes
	ConfirmationCodeTTL time.Duration

	// Mail
	MailBackend       string
	MailFrom          string
	MailOutboxPath    string
	MailRatePerSecond float64
	MailBurst         int
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Rate limiting
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	RateLimitBlockTime   time.Duration

	// Bootstrap admin (cmd/manage createadmin)
	AdminUsername string
	AdminEmail    string
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	// (Docker containers use environment variables directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using process environment")
	}

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiry:      getEnvAsDuration("JWT_EXPIRY", "24h"),
		ServerPort:     getEnv("SERVER_PORT", ":8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS", "http://localhost:3000"),

		ConfirmationCodeTTL: getEnvAsDuration("CONFIRMATION_CODE_TTL", "72h"),

		MailBackend:       getEnv("MAIL_BACKEND", "file"),
		MailFrom:          getEnv("MAIL_FROM", "noreply@yamdb.local"),
		MailOutboxPath:    getEnv("MAIL_OUTBOX_PATH", "data/sent_emails.jsonl"),
		MailRatePerSecond: getEnvAsFloat("MAIL_RATE_PER_SECOND", 5),
		MailBurst:         getEnvAsInt("MAIL_BURST", 10),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),

		RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),
		RateLimitBlockTime:   getEnvAsDuration("RATE_LIMIT_BLOCK_TIME", "5m"),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return errors.New("DATABASE_DRIVER must be postgres or sqlite")
	}
	switch c.MailBackend {
	case "smtp":
		if c.SMTPHost == "" {
			return errors.New("SMTP_HOST is required when MAIL_BACKEND=smtp")
		}
	case "file":
	default:
		return errors.New("MAIL_BACKEND must be smtp or file")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt retrieves environment variable as int with default value
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Invalid %s value, using default: %g", key, defaultVal)
		return defaultVal
	}
	return val
}

// getEnvAsDuration retrieves environment variable as duration with default value
func getEnvAsDuration(key string, defaultVal string) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		valStr = defaultVal
	}
	duration, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %s", key, defaultVal)
		duration, _ = time.ParseDuration(defaultVal)
	}
	return duration
}

func getEnvAsList(key, defaultVal string) []string {
	raw := getEnv(key, defaultVal)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
