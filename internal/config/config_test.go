package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test default configuration
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("JWT_ISS")
	os.Unsetenv("JWT_AUD")
	os.Unsetenv("JWT_EXPIRY")
	os.Unsetenv("TRIAL_DAYS")
	os.Unsetenv("MAX_UPLOAD_BYTES")

	cfg := Load()

	// Check defaults
	if cfg.JWTSecret != "your-secret-key-change-in-production" {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "rentfleet-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "rentfleet-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
	if cfg.TrialDays != 14 {
		t.Errorf("Expected default TRIAL_DAYS 14, got %d", cfg.TrialDays)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Errorf("Expected default MAX_UPLOAD_BYTES, got %d", cfg.MaxUploadBytes)
	}
	if cfg.StorageDir != "data/documents" {
		t.Errorf("Expected default STORAGE_DIR, got %s", cfg.StorageDir)
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	// Test with environment variables
	os.Setenv("JWT_SECRET", "test-secret-key")
	os.Setenv("JWT_ISS", "test-issuer")
	os.Setenv("JWT_AUD", "test-audience")
	os.Setenv("JWT_EXPIRY", "2h")
	os.Setenv("TRIAL_DAYS", "30")
	os.Setenv("RATE_LIMIT_RPS", "5.5")

	cfg := Load()

	// Check environment values
	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}
	if cfg.TrialDays != 30 {
		t.Errorf("Expected TRIAL_DAYS from env, got %d", cfg.TrialDays)
	}
	if cfg.RateLimitRPS != 5.5 {
		t.Errorf("Expected RATE_LIMIT_RPS from env, got %v", cfg.RateLimitRPS)
	}

	// Cleanup
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("JWT_ISS")
	os.Unsetenv("JWT_AUD")
	os.Unsetenv("JWT_EXPIRY")
	os.Unsetenv("TRIAL_DAYS")
	os.Unsetenv("RATE_LIMIT_RPS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWTSecret:      "valid-secret-that-is-long-enough-for-testing",
			JWTIssuer:      "test-issuer",
			JWTAudience:    "test-audience",
			JWTExpiry:      time.Hour,
			MaxUploadBytes: 20 << 20,
			TrialDays:      14,
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "empty secret",
			mutate:      func(c *Config) { c.JWTSecret = "" },
			expectError: true,
		},
		{
			name:        "secret too short",
			mutate:      func(c *Config) { c.JWTSecret = "short" },
			expectError: true,
		},
		{
			name:        "empty issuer",
			mutate:      func(c *Config) { c.JWTIssuer = "" },
			expectError: true,
		},
		{
			name:        "empty audience",
			mutate:      func(c *Config) { c.JWTAudience = "" },
			expectError: true,
		},
		{
			name:        "negative expiry",
			mutate:      func(c *Config) { c.JWTExpiry = -time.Hour },
			expectError: true,
		},
		{
			name:        "zero upload limit",
			mutate:      func(c *Config) { c.MaxUploadBytes = 0 },
			expectError: true,
		},
		{
			name:        "negative trial days",
			mutate:      func(c *Config) { c.TrialDays = -1 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	os.Setenv("JWT_SECRET", "a-secret-that-is-definitely-long-enough-for-validation")
	defer os.Unsetenv("JWT_SECRET")

	cfg, err := LoadAndValidate()
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadAndValidate() returned nil config")
	}
}
