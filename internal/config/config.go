// Package config loads server and analysis settings from defaults, an
// optional YAML/TOML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. PFA_STORE_BACKEND.
const EnvPrefix = "PFA"

// Store backends.
const (
	BackendMemory    = store.BackendMemory
	BackendFirestore = store.BackendFirestore
	BackendSQLite    = store.BackendSQLite
)

// Config is the complete application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Notify NotifyConfig `mapstructure:"notify"`

	Recurring recurring.Config `mapstructure:"recurring"`
	Forecast  forecast.Config  `mapstructure:"forecast"`
	Insights  insights.Config  `mapstructure:"insights"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	ProjectID  string `mapstructure:"project_id"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type AuthConfig struct {
	// Skip replaces token verification with a fixed local user.
	Skip            bool   `mapstructure:"skip"`
	DevUserID       string `mapstructure:"dev_user_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type NotifyConfig struct {
	// AMQPURL selects the broker publisher; empty logs alerts instead.
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
	// MaxLevel is the least urgent priority level still pushed (1 = critical only).
	MaxLevel int `mapstructure:"max_level"`
}

func setDefaults(v *viper.Viper) error {
	v.SetDefault("server.port", "8111")
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:1234",
		"http://127.0.0.1:1234",
		"https://pfinance.dev",
		"https://www.pfinance.dev",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.backend", BackendFirestore)
	v.SetDefault("store.project_id", "pfinance-app-1748773335")
	v.SetDefault("store.sqlite_path", "pfanalytics.db")
	v.SetDefault("auth.skip", false)
	v.SetDefault("auth.dev_user_id", "local-dev-user")
	v.SetDefault("auth.credentials_file", "")
	v.SetDefault("cache.size", 1000)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("notify.amqp_url", "")
	v.SetDefault("notify.exchange", "pfinance.insights")
	v.SetDefault("notify.max_level", insights.LevelHigh)

	for key, def := range map[string]any{
		"recurring": recurring.DefaultConfig(),
		"forecast":  forecast.DefaultConfig(),
		"insights":  insights.DefaultConfig(),
	} {
		var m map[string]any
		if err := mapstructure.Decode(def, &m); err != nil {
			return fmt.Errorf("encode %s defaults: %w", key, err)
		}
		v.SetDefault(key, m)
	}
	return nil
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names the deployment scripts already set.
	for key, envs := range map[string][]string{
		"server.port":           {"PFA_SERVER_PORT", "PORT"},
		"store.project_id":      {"PFA_STORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
		"auth.skip":             {"PFA_AUTH_SKIP", "SKIP_AUTH"},
		"auth.credentials_file": {"PFA_AUTH_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_KEY"},
		"legacy.memory_store":   {"USE_MEMORY_STORE"},
		"legacy.env":            {"ENV"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Local runs use memory storage and mock auth.
	if v.GetBool("legacy.memory_store") || v.GetString("legacy.env") == "local" {
		cfg.Store.Backend = BackendMemory
		cfg.Auth.Skip = true
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Backend == BackendMemory {
		cfg.Auth.Skip = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			errs = append(errs, errors.New("store.project_id is required for the firestore backend"))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, firestore, sqlite", c.Store.Backend))
	}
	if c.Auth.Skip && c.Auth.DevUserID == "" {
		errs = append(errs, errors.New("auth.dev_user_id is required when auth.skip is set"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Notify.MaxLevel < insights.LevelCritical || c.Notify.MaxLevel > insights.LevelLow {
		errs = append(errs, fmt.Errorf("notify.max_level must be between %d and %d", insights.LevelCritical, insights.LevelLow))
	}
	if c.Notify.AMQPURL != "" && c.Notify.Exchange == "" {
		errs = append(errs, errors.New("notify.exchange is required with notify.amqp_url"))
	}
	if c.Recurring.ConfidenceThreshold < 0 || c.Recurring.ConfidenceThreshold > 1 {
		errs = append(errs, errors.New("recurring.confidence_threshold must be within [0, 1]"))
	}
	if c.Recurring.IntervalWeight < 0 || c.Recurring.IntervalWeight > 1 {
		errs = append(errs, errors.New("recurring.interval_weight must be within [0, 1]"))
	}
	if c.Insights.DefaultTopN < 0 {
		errs = append(errs, errors.New("insights.default_top_n must not be negative"))
	}
	return errors.Join(errs...)
}

// ClientOptions returns the Google client options for the configured credentials.
func (c *Config) ClientOptions() []option.ClientOption {
	if c.Auth.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.Auth.CredentialsFile)}
}

// StoreOptions returns the options store.Open needs.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Store.Backend,
		ProjectID:     c.Store.ProjectID,
		SQLitePath:    c.Store.SQLitePath,
		ClientOptions: c.ClientOptions(),
	}
}
