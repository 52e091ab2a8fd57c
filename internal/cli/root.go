// Package cli implements the threadline command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tOgg1/threadline/internal/config"
	"github.com/tOgg1/threadline/internal/logging"
)

var (
	cfgFile    string
	dbPath     string
	logLevel   string
	jsonOutput bool
	noColor    bool

	appConfig *config.Config
	logFile   *os.File
)

var rootCmd = &cobra.Command{
	Use:   "threadline",
	Short: "Browse timelines and conversations from the local item store",
	Long: `threadline pages through locally stored posts, folds duplicates
and rebuilds reply conversations around a selected post.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logging.WithContext(ctx, logging.Logger.With().Str("command", cmd.CommandPath()).Logger()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/threadline/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable styled output")
}

// Execute runs the root command. Cancelling ctx aborts in-flight loads.
func Execute(ctx context.Context, version string) error {
	rootCmd.Version = version
	return rootCmd.ExecuteContext(ctx)
}

// GetConfig returns the loaded configuration. It is nil before a command runs.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

func initConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	if dbPath != "" {
		loader.Set("database.path", dbPath)
	}
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	out := os.Stderr
	if cfg.Logging.File != "" {
		f, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		out = f
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       out,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	if cfg.Database.Path == "" {
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
	} else if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	if used := loader.ConfigFileUsed(); used != "" {
		logging.Debug().Str("path", used).Msg("loaded config file")
	}
	appConfig = cfg
	return nil
}

func closeLogFile() {
	if logFile == nil {
		return
	}
	_ = logFile.Close()
	logFile = nil
}
