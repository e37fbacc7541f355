package config

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/eternalApril/moondb/internal/storage"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MOONDB_STORAGE_SHARDS
const EnvPrefix = "MOONDB"

// Config represents the root configuration structure for the application
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	GC      GCConfig      `mapstructure:"gc"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig defines the internal structure of the storage engine
type StorageConfig struct {
	Shards           uint     `mapstructure:"shards"`
	MaxMemory        ByteSize `mapstructure:"maxmemory"`         // 0 means no limit
	MaxMemoryPolicy  string   `mapstructure:"maxmemory_policy"`  // noeviction, allkeys-lru, volatile-ttl...
	MaxMemorySamples int      `mapstructure:"maxmemory_samples"` // keys compared per eviction
}

// LogConfig defines logging verbosity, output style and destination
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	Output     string `mapstructure:"output"`      // stdout, stderr or a file path
	Rotation   bool   `mapstructure:"rotation"`    // rotate file output
	MaxSize    int    `mapstructure:"max_size"`    // megabytes per file before rotation
	MaxBackups int    `mapstructure:"max_backups"` // rotated files to retain
	MaxAge     int    `mapstructure:"max_age"`     // days to retain rotated files
}

// MetricsConfig defines the prometheus metrics of the store
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LoadOption adjusts the viper instance before the configuration is read
type LoadOption func(v *viper.Viper) error

// WithDefaults replaces built-in defaults, e.g. a CLI that logs to stderr
func WithDefaults(defaults map[string]any) LoadOption {
	return func(v *viper.Viper) error {
		for key, val := range defaults {
			v.SetDefault(key, val)
		}
		return nil
	}
}

// WithFlags binds command line flags to configuration keys (key -> flag name).
// A flag wins over the file and the environment only when it was set
func WithFlags(flags *pflag.FlagSet, keys map[string]string) LoadOption {
	return func(v *viper.Viper) error {
		for key, name := range keys {
			f := flags.Lookup(name)
			if f == nil {
				return fmt.Errorf("no flag %q to bind to %s", name, key)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string, opts ...LoadOption) (*Config, error) {
	v, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFile reads an explicit configuration file, which must exist
func LoadFile(file string, opts ...LoadOption) (*Config, error) {
	v, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func newViper(opts []LoadOption) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	bindEnv(v)
	return v, nil
}

// Default returns the built-in configuration, ignoring files and environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, err := unmarshal(v)
	if err != nil {
		// defaults are static, a failure here is a programming error
		panic(err)
	}
	return cfg
}

// Validate checks values that would otherwise fail deep inside the engine
func (c *Config) Validate() error {
	if bits.OnesCount(c.Storage.Shards) != 1 || c.Storage.Shards > 64 {
		return fmt.Errorf("storage.shards must be a power of 2 between 1 and 64, got %d", c.Storage.Shards)
	}
	if c.Storage.MaxMemory < 0 {
		return fmt.Errorf("storage.maxmemory must not be negative, got %d", c.Storage.MaxMemory)
	}
	if _, err := storage.ParseEvictionPolicy(c.Storage.MaxMemoryPolicy); err != nil {
		return fmt.Errorf("storage.maxmemory_policy: %w", err)
	}
	if c.Storage.MaxMemorySamples <= 0 {
		return errors.New("storage.maxmemory_samples must be positive")
	}
	if err := c.GC.Validate(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("metrics.namespace must not be empty when metrics are enabled")
	}
	return nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Storage
	v.SetDefault("storage.shards", 32)
	v.SetDefault("storage.maxmemory", "0")
	v.SetDefault("storage.maxmemory_policy", storage.NoEviction.String())
	v.SetDefault("storage.maxmemory_samples", 5)

	// GC
	gc := DefaultGCConfig()
	v.SetDefault("gc.enabled", gc.Enabled)
	v.SetDefault("gc.interval", gc.Interval.String())
	v.SetDefault("gc.batch_size", gc.BatchSize)

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.rotation", false)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "moondb")
}
