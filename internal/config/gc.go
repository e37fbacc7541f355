package config

import (
	"errors"
	"time"
)

// GCConfig defines the parameters for the background active expiration
type GCConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`   // how often to run the background sweep
	BatchSize int           `mapstructure:"batch_size"` // keys removed per write lock acquisition
}

func DefaultGCConfig() GCConfig {
	return GCConfig{
		Enabled:   true,
		Interval:  100 * time.Millisecond,
		BatchSize: 256,
	}
}

func (c GCConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return errors.New("gc.interval must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("gc.batch_size must be positive")
	}
	return nil
}
