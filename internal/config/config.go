package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Airtable   AirtableConfig   `yaml:"airtable" mapstructure:"airtable"`
	Target     TargetConfig     `yaml:"target" mapstructure:"target"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AirtableConfig holds Airtable API credentials and the tables to read.
type AirtableConfig struct {
	Token       string         `yaml:"token" mapstructure:"token"`
	BaseID      string         `yaml:"base_id" mapstructure:"base_id"`
	BaseURL     string         `yaml:"base_url" mapstructure:"base_url"`
	PageSize    int            `yaml:"page_size" mapstructure:"page_size"`
	RateLimit   float64        `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int            `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Tables      AirtableTables `yaml:"tables" mapstructure:"tables"`
	Retry       RetryConfig    `yaml:"retry" mapstructure:"retry"`
}

// AirtableTables names the source table for each entity type.
type AirtableTables struct {
	People    string `yaml:"people" mapstructure:"people"`
	Companies string `yaml:"companies" mapstructure:"companies"`
	Jobs      string `yaml:"jobs" mapstructure:"jobs"`
}

// RetryConfig configures per-page retry of Airtable reads.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// TargetConfig points at the CRM database that plans are applied to.
type TargetConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SyncConfig configures planning and artifact output.
type SyncConfig struct {
	OutputDir         string `yaml:"output_dir" mapstructure:"output_dir"`
	FieldMap          string `yaml:"field_map" mapstructure:"field_map"`
	Title             string `yaml:"title" mapstructure:"title"`
	RequireComplete   bool   `yaml:"require_complete" mapstructure:"require_complete"`
	AllowEmptyCleanup bool   `yaml:"allow_empty_cleanup" mapstructure:"allow_empty_cleanup"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port          int    `yaml:"port" mapstructure:"port"`
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackRuns         int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CRMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("airtable.token", "")
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.page_size", 100)
	v.SetDefault("airtable.rate_limit", 5.0)
	v.SetDefault("airtable.timeout_secs", 30)
	v.SetDefault("airtable.tables.people", "People")
	v.SetDefault("airtable.tables.companies", "Companies")
	v.SetDefault("airtable.tables.jobs", "Jobs")
	v.SetDefault("airtable.retry.max_attempts", 4)
	v.SetDefault("airtable.retry.initial_backoff_ms", 500)
	v.SetDefault("airtable.retry.max_backoff_ms", 30000)
	v.SetDefault("target.database_url", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crm-sync.db")
	v.SetDefault("sync.output_dir", "plans")
	v.SetDefault("sync.field_map", "")
	v.SetDefault("sync.title", "AIRTABLE TO CRM RECONCILIATION PLAN")
	v.SetDefault("sync.require_complete", true)
	v.SetDefault("sync.allow_empty_cleanup", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.webhook_secret", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.lookback_runs", 20)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by a command mode: "plan", "apply"
// or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	checkAirtable := func() {
		if c.Airtable.Token == "" {
			errs = append(errs, "airtable.token is required")
		}
		if c.Airtable.BaseID == "" {
			errs = append(errs, "airtable.base_id is required")
		}
		if c.Airtable.PageSize < 1 || c.Airtable.PageSize > 100 {
			errs = append(errs, "airtable.page_size must be between 1 and 100")
		}
		if c.Airtable.Tables.People == "" || c.Airtable.Tables.Companies == "" || c.Airtable.Tables.Jobs == "" {
			errs = append(errs, "airtable.tables.{people,companies,jobs} are required")
		}
	}

	switch mode {
	case "plan":
		checkAirtable()
	case "apply":
		checkAirtable()
		if c.Target.DatabaseURL == "" {
			errs = append(errs, "target.database_url is required")
		}
	case "serve":
		checkAirtable()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
