package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		Port:                 "8080",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBPassword:           "secure-password",
		DBSSLMode:            "require",
		StoreBackend:         StorePostgres,
		EventsBackend:        EventsRedis,
		ImageMaxUploadSizeMB: 10,
		TracingSamplerRatio:  1,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateBackends(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"mongo store", func(c *Config) { c.StoreBackend = StoreMongo }, false},
		{"sqlite store", func(c *Config) { c.StoreBackend = StoreSQLite }, false},
		{"unknown store", func(c *Config) { c.StoreBackend = "cassandra" }, true},
		{"nats events", func(c *Config) { c.EventsBackend = EventsNATS }, false},
		{"no events", func(c *Config) { c.EventsBackend = EventsNone }, false},
		{"unknown events", func(c *Config) { c.EventsBackend = "kafka" }, true},
		{"zero upload size", func(c *Config) { c.ImageMaxUploadSizeMB = 0 }, true},
		{"sampler above one", func(c *Config) { c.TracingSamplerRatio = 1.5 }, true},
		{"sqlite in production", func(c *Config) {
			c.Env = "production"
			c.StoreBackend = StoreSQLite
		}, true},
		{"default secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("STORE_BACKEND")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("STORE_BACKEND", " SQLite ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, StoreSQLite, c.StoreBackend)
	assert.Equal(t, 10, c.ImageMaxUploadSizeMB)
	assert.Equal(t, "/media/i", c.BlobPublicBase)
}
