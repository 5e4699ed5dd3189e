package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8111", cfg.Server.Port)
	assert.Equal(t, BackendFirestore, cfg.Store.Backend)
	assert.False(t, cfg.Auth.Skip)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, insights.LevelHigh, cfg.Notify.MaxLevel)

	assert.Equal(t, recurring.DefaultConfig(), cfg.Recurring)
	assert.Equal(t, forecast.DefaultConfig(), cfg.Forecast)
	assert.Equal(t, insights.DefaultConfig(), cfg.Insights)
}

func TestLoadFile(t *testing.T) {
	content := `
server:
  port: "9000"
store:
  backend: sqlite
  sqlite_path: /tmp/analytics.db
cache:
  ttl: 90s
recurring:
  gray_max_amount: 15
  known_services: [netflix, spotify]
insights:
  default_top_n: 3
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/analytics.db", cfg.Store.SQLitePath)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 15.0, cfg.Recurring.GrayMaxAmount)
	assert.Equal(t, []string{"netflix", "spotify"}, cfg.Recurring.KnownServices)
	assert.Equal(t, 3, cfg.Insights.DefaultTopN)
	// untouched keys keep their defaults
	assert.Equal(t, recurring.DefaultConfig().MinCharges, cfg.Recurring.MinCharges)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Run("prefixed overrides", func(t *testing.T) {
		t.Setenv("PFA_STORE_BACKEND", "SQLite")
		t.Setenv("PFA_INSIGHTS_SPIKE_PERCENT", "40")
		t.Setenv("PFA_NOTIFY_MAX_LEVEL", "1")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, cfg.Store.Backend)
		assert.Equal(t, 40.0, cfg.Insights.SpikePercent)
		assert.Equal(t, insights.LevelCritical, cfg.Notify.MaxLevel)
	})

	t.Run("legacy names", func(t *testing.T) {
		t.Setenv("PORT", "8200")
		t.Setenv("GOOGLE_CLOUD_PROJECT", "demo-project")
		t.Setenv("SKIP_AUTH", "true")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "8200", cfg.Server.Port)
		assert.Equal(t, "demo-project", cfg.Store.ProjectID)
		assert.True(t, cfg.Auth.Skip)
	})

	t.Run("local environment uses memory store", func(t *testing.T) {
		t.Setenv("ENV", "local")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, cfg.Store.Backend)
		assert.True(t, cfg.Auth.Skip)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8111"},
			Store:     StoreConfig{Backend: BackendMemory},
			Auth:      AuthConfig{Skip: true, DevUserID: "dev"},
			Notify:    NotifyConfig{MaxLevel: insights.LevelHigh},
			Recurring: recurring.DefaultConfig(),
			Insights:  insights.DefaultConfig(),
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server.port"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"firestore without project", func(c *Config) { c.Store.Backend = BackendFirestore }, "store.project_id"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite }, "store.sqlite_path"},
		{"skip without dev user", func(c *Config) { c.Auth.DevUserID = "" }, "auth.dev_user_id"},
		{"level out of range", func(c *Config) { c.Notify.MaxLevel = 7 }, "notify.max_level"},
		{"amqp without exchange", func(c *Config) { c.Notify.AMQPURL = "amqp://localhost" }, "notify.exchange"},
		{"confidence above one", func(c *Config) { c.Recurring.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("collects every problem", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		cfg.Notify.MaxLevel = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
		assert.Contains(t, err.Error(), "notify.max_level")
	})
}

func TestStoreOptions(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{Backend: BackendSQLite, SQLitePath: "a.db", ProjectID: "p"},
	}
	opts := cfg.StoreOptions()
	assert.Equal(t, BackendSQLite, opts.Backend)
	assert.Equal(t, "a.db", opts.SQLitePath)
	assert.Empty(t, opts.ClientOptions)

	cfg.Auth.CredentialsFile = "/secrets/sa.json"
	assert.Len(t, cfg.StoreOptions().ClientOptions, 1)
}
