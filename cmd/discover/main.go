package main

import (
	"fmt"
	"os"
	"strings"

	"jobmatch/internal/config"
	"jobmatch/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const appName = "discover"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "discover finds, validates and stores job postings from the configured sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml in ./configs or the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds a logger writing to stderr, so
// stdout stays free for command output.
func setup() (config.Config, *zap.Logger, error) {
	if strings.TrimSpace(cfgFile) != "" {
		if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
			return config.Config{}, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Format, "stderr")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}
