package main

import (
	"errors"
	"fmt"

	"github.com/eternalApril/moondb"
	"github.com/eternalApril/moondb/internal/config"
	"github.com/eternalApril/moondb/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	Version = "1.0.0"
)

// errCommandFailed is returned after a failed reply has been printed
var errCommandFailed = errors.New("command failed")

var (
	configPath string
	configFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "moondb",
		Short: "embedded key-value store",
		Long: fmt.Sprintf(`moondb (v%s)

An in-process key-value store with typed values, per-key expiration
and a Redis-like command set.`, Version),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of moondb",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moondb v%s\n", Version)
		},
	}
)

// flagKeys maps configuration keys to the persistent flags that override them
var flagKeys = map[string]string{
	"storage.shards":           "shards",
	"storage.maxmemory":        "maxmemory",
	"storage.maxmemory_policy": "maxmemory-policy",
	"gc.enabled":               "gc",
	"gc.interval":              "gc-interval",
	"log.level":                "log-level",
	"log.format":               "log-format",
	"log.output":               "log-output",
}

// cliDefaults keep logs out of the way of replies on stdout
var cliDefaults = map[string]any{
	"log.level":  "warn",
	"log.format": "console",
	"log.output": "stderr",
}

func init() {
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "directory containing config.yaml")
	flags.StringVar(&configFile, "config-file", "", "configuration file to read instead of config.yaml")
	rootCmd.MarkFlagsMutuallyExclusive("config", "config-file")
	flags.Uint("shards", 32, "number of storage shards (power of 2, at most 64)")
	flags.String("maxmemory", "0", "memory limit such as 512mb or 1gib, 0 for none")
	flags.String("maxmemory-policy", "noeviction", "keys to evict over the limit (noeviction, allkeys-lru, volatile-ttl...)")
	flags.Bool("gc", true, "run the background expiration sweeper")
	flags.Duration("gc-interval", config.DefaultGCConfig().Interval, "interval between expiration sweeps")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (json, console)")
	flags.String("log-output", "stderr", "log destination (stdout, stderr or a file path)")
}

// openDB loads .env files and the configuration, then opens a store.
// Flags win over the environment, which wins over config.yaml
func openDB(cmd *cobra.Command) (*moondb.DB, *zap.Logger, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	opts := []config.LoadOption{
		config.WithDefaults(cliDefaults),
		config.WithFlags(cmd.Flags(), flagKeys),
	}

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile, opts...)
	} else {
		cfg, err = config.Load(configPath, opts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := moondb.Open(cfg, moondb.WithLogger(log))
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return db, log, nil
}
