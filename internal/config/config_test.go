package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ============================================
// Load Tests
// ============================================

func TestLoad_DefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("EC_AUTH__JWT_SECRET", testSecret)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "MYECOM", cfg.Checkout.TrackingPrefix)
	assert.Equal(t, 5, cfg.Checkout.TrackingAttempts)
	assert.Equal(t, time.Second, cfg.Outbox.Interval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9000"
database:
  driver: memory
auth:
  jwt_secret: "`+testSecret+`"
  access_ttl: 30m
checkout:
  lock_timeout: 2s
kafka:
  brokers: ["k1:9092"]
`)
	t.Setenv("EC_HTTP__ADDR", ":9100")
	t.Setenv("EC_KAFKA__BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 2*time.Second, cfg.Checkout.LockTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
}

func TestLoad_EnvBrokerList(t *testing.T) {
	t.Setenv("EC_AUTH__JWT_SECRET", testSecret)
	t.Setenv("EC_KAFKA__BROKERS", " k1:9092, k2:9092,,k3:9092 ")
	t.Setenv("EC_KAFKA__TOPIC", "a,b")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092", "k3:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "a,b", cfg.Kafka.Topic)
}

func TestLoad_MissingFileIsSkipped(t *testing.T) {
	t.Setenv("EC_AUTH__JWT_SECRET", testSecret)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.NoError(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "http: [unclosed")

	_, err := Load(path)

	assert.Error(t, err)
}

// ============================================
// Validate Tests
// ============================================

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Auth.JWTSecret = testSecret
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "unknown"},
		{"postgres without url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"memory without url", func(c *Config) { c.Database.Driver = DriverMemory; c.Database.URL = "" }, ""},
		{"zero lock timeout", func(c *Config) { c.Checkout.LockTimeout = 0 }, "lock_timeout"},
		{"no tracking attempts", func(c *Config) { c.Checkout.TrackingAttempts = 0 }, "tracking_attempts"},
		{"zero outbox batch", func(c *Config) { c.Outbox.BatchSize = 0 }, "outbox"},
		{"no addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := c.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
