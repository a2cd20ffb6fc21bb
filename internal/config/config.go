// Package config handles configuration loading for form13f.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "FORM13F"

// Config represents the complete application configuration.
type Config struct {
	EDGAR     EDGARConfig     `mapstructure:"edgar"     yaml:"edgar"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile"`
	Output    OutputConfig    `mapstructure:"output"    yaml:"output"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// EDGARConfig holds SEC EDGAR access settings.
type EDGARConfig struct {
	// UserAgent is the identity declared to the SEC, e.g. "Jane Doe jane@example.com".
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent" validate:"required,contains=@"`
	BaseURL   string        `mapstructure:"base_url"   yaml:"base_url"   validate:"required,url"` // archives and browse pages
	DataURL   string        `mapstructure:"data_url"   yaml:"data_url"   validate:"required,url"` // JSON data API
	RateLimit int           `mapstructure:"rate_limit" yaml:"rate_limit" validate:"min=1,max=10"` // requests per second
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"    validate:"gt=0"`
	FormType  string        `mapstructure:"form_type"  yaml:"form_type"  validate:"required"`
}

// ReconcileConfig holds amendment reconciliation settings.
type ReconcileConfig struct {
	UpperThreshold     float64 `mapstructure:"upper_threshold"     yaml:"upper_threshold"     validate:"gt=0"`
	LowerThreshold     float64 `mapstructure:"lower_threshold"     yaml:"lower_threshold"     validate:"gt=0"`
	AttachmentStrategy string  `mapstructure:"attachment_strategy" yaml:"attachment_strategy" validate:"oneof=position type"`
	AttachmentIndex    int     `mapstructure:"attachment_index"    yaml:"attachment_index"    validate:"min=0"`
	Concurrency        int     `mapstructure:"concurrency"         yaml:"concurrency"         validate:"min=1,max=32"`
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"           yaml:"dir"`
	AmbiguousDir string `mapstructure:"ambiguous_dir" yaml:"ambiguous_dir"`
}

// CacheConfig holds HTTP response cache settings.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"` // archive documents
	// ListingTTL applies to filing lists and feeds, which change when a
	// manager files. Zero disables caching them.
	ListingTTL time.Duration `mapstructure:"listing_ttl" yaml:"listing_ttl" validate:"min=0"`
	Redis      RedisConfig   `mapstructure:"redis"       yaml:"redis"`
}

// RedisConfig holds the optional shared response cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	Addr     string `mapstructure:"addr"     yaml:"addr"     validate:"required_if=Enabled true"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
	Prefix   string `mapstructure:"prefix"   yaml:"prefix"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // node-exporter textfile path, empty disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.form13f/config.yaml (home directory)
//  3. /etc/form13f/config.yaml (system)
//
// Environment variables override config file values.
// Format: FORM13F_<SECTION>_<KEY>, e.g., FORM13F_EDGAR_USER_AGENT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".form13f"))
	v.AddConfigPath("/etc/form13f")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// EDGAR defaults
	v.SetDefault("edgar.user_agent", "")
	v.SetDefault("edgar.base_url", "https://www.sec.gov")
	v.SetDefault("edgar.data_url", "https://data.sec.gov")
	v.SetDefault("edgar.rate_limit", 8) // SEC allows 10/s
	v.SetDefault("edgar.timeout", 30*time.Second)
	v.SetDefault("edgar.form_type", "13F-HR")

	// Reconcile defaults
	v.SetDefault("reconcile.upper_threshold", 0.8)
	v.SetDefault("reconcile.lower_threshold", 0.2)
	v.SetDefault("reconcile.attachment_strategy", "type")
	v.SetDefault("reconcile.attachment_index", 2)
	v.SetDefault("reconcile.concurrency", 4)

	// Output defaults
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.ambiguous_dir", "main_or_attachment")

	// Cache defaults
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.listing_ttl", time.Duration(0))
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "form13f")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if ua := os.Getenv(EnvPrefix + "_EDGAR_USER_AGENT"); ua != "" {
		cfg.EDGAR.UserAgent = ua
	}
	if pw := os.Getenv(EnvPrefix + "_CACHE_REDIS_PASSWORD"); pw != "" {
		cfg.Cache.Redis.Password = pw
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
