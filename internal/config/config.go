package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSender string

	StorageDir     string
	MaxUploadBytes int64

	BillingWebhookSecret string
	BillingPageURL       string

	TrialDays int

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
}

func Load() *Config {
	config := &Config{
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:   getEnv("JWT_ISS", "rentfleet-api"),
		JWTAudience: getEnv("JWT_AUD", "rentfleet-api"),
		JWTExpiry:   24 * time.Hour, // Default to 24 hours

		SMTPHost:   getEnv("SMTP_HOST", "localhost"),
		SMTPPort:   getEnvInt("SMTP_PORT", 25),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		SMTPSender: getEnv("SMTP_SENDER", "RentFleet <no-reply@rentfleet.example>"),

		StorageDir:     getEnv("STORAGE_DIR", "data/documents"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 20<<20),

		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		BillingPageURL:       getEnv("BILLING_PAGE_URL", "/billing"),

		TrialDays: getEnvInt("TRIAL_DAYS", 14),

		RateLimitEnabled: getEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 4),
	}

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			config.JWTExpiry = expiry
		}
	}

	return config
}

// Validate checks that the configuration is safe to serve with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT secret must be at least 32 characters")
	}
	if c.JWTIssuer == "" {
		return errors.New("JWT issuer is required")
	}
	if c.JWTAudience == "" {
		return errors.New("JWT audience is required")
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT expiry must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if c.TrialDays < 0 {
		return errors.New("trial days cannot be negative")
	}
	return nil
}

// LoadAndValidate loads the configuration and validates it
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
