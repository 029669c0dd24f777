package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadValid(t *testing.T) *Config {
	t.Helper()

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	return cfg
}

func TestLoad(t *testing.T) {
	t.Run("parses all sections", func(t *testing.T) {
		cfg := loadValid(t)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "crm_messaging", cfg.Database.Database)
		assert.Equal(t, "crm_events", cfg.RabbitMQ.Exchange.Name)
		assert.Equal(t, "topic", cfg.RabbitMQ.Exchange.Type)
		assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
		assert.Equal(t, "+16020000000", cfg.Twilio.FromNumber)
		assert.Equal(t, 15*time.Second, cfg.Dispatcher.PollInterval)
		assert.Equal(t, 10, cfg.Dispatcher.BatchLimit)
		assert.Equal(t, 5, cfg.Dispatcher.MaxAttempts)
		assert.Equal(t, 10*time.Minute, cfg.Dispatcher.RetryCooldown)
	})

	t.Run("env var overrides twilio auth token", func(t *testing.T) {
		t.Setenv("TWILIO_AUTH_TOKEN", "env-token")

		cfg := loadValid(t)
		assert.Equal(t, "env-token", cfg.Twilio.AuthToken)
	})

	t.Run("token from file when env unset", func(t *testing.T) {
		t.Setenv("TWILIO_AUTH_TOKEN", "")

		cfg := loadValid(t)
		assert.Equal(t, "file-token", cfg.Twilio.AuthToken)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load("testdata/does_not_exist.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load("testdata/malformed.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestValidateAPIConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, loadValid(t).ValidateAPIConfig())
	})

	t.Run("rejects bad server port", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Server.Port = 0
		assert.ErrorContains(t, cfg.ValidateAPIConfig(), "invalid server port")
	})

	t.Run("rejects missing database host", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Database.Host = ""
		assert.ErrorContains(t, cfg.ValidateAPIConfig(), "database host is required")
	})

	t.Run("rejects missing exchange name", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.RabbitMQ.Exchange.Name = ""
		assert.ErrorContains(t, cfg.ValidateAPIConfig(), "rabbitmq exchange name is required")
	})
}

func TestValidateDispatcherConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, loadValid(t).ValidateDispatcherConfig())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Dispatcher.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "zero batch limit",
			mutate:  func(c *Config) { c.Dispatcher.BatchLimit = 0 },
			wantErr: "batch_limit",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.Dispatcher.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "zero retry cooldown",
			mutate:  func(c *Config) { c.Dispatcher.RetryCooldown = 0 },
			wantErr: "retry_cooldown",
		},
		{
			name:    "missing account sid",
			mutate:  func(c *Config) { c.Twilio.AccountSID = "" },
			wantErr: "account_sid",
		},
		{
			name:    "missing auth token",
			mutate:  func(c *Config) { c.Twilio.AuthToken = "" },
			wantErr: "auth_token",
		},
		{
			name:    "missing from number",
			mutate:  func(c *Config) { c.Twilio.FromNumber = "" },
			wantErr: "from_number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.ValidateDispatcherConfig(), tt.wantErr)
		})
	}
}
