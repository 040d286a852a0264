package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("STORAGE_DRIVER", "local")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15, cfg.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.AuthRateWindow)
	assert.Equal(t, "0 9 * * *", cfg.ReminderSchedule)
	assert.False(t, cfg.StripeEnabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("AUTH_RATE_LIMIT", "not-a-number")
	t.Setenv("FRONTEND_URL", "https://apollo.example/")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15, cfg.AuthRateLimit)
	assert.Equal(t, "https://apollo.example", cfg.FrontendURL)
	assert.True(t, cfg.StripeEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mongo" }, true},
		{"unknown storage", func(c *Config) { c.StorageDriver = "s3" }, true},
		{"oss without bucket", func(c *Config) { c.StorageDriver = "oss"; c.OSSEndpoint = "oss.example" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{JWTSecret: "s", DBDriver: "sqlite", StorageDriver: "local"}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
