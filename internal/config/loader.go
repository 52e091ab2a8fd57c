package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "THREADLINE"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars < CLI flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper's Unmarshal doesn't merge env vars for nested structs reliably.
	l.applyEnvOverrides(cfg)

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all path-related config fields.
func expandPaths(cfg *Config) {
	cfg.Global.DataDir = expandTilde(cfg.Global.DataDir)
	cfg.Global.ConfigDir = expandTilde(cfg.Global.ConfigDir)
	cfg.Database.Path = expandTilde(cfg.Database.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "threadline"))
	}

	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "threadline"))
	}

	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	bindEnvVars(v)

	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	// Global
	v.SetDefault("global.data_dir", cfg.Global.DataDir)
	v.SetDefault("global.config_dir", cfg.Global.ConfigDir)

	// Database
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.busy_timeout_ms", cfg.Database.BusyTimeoutMs)
	v.SetDefault("database.item_cache_size", cfg.Database.ItemCacheSize)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	// Timeline
	v.SetDefault("timeline.max_windows", cfg.Timeline.MaxWindows)
	v.SetDefault("timeline.page_size", cfg.Timeline.PageSize)
	v.SetDefault("timeline.collapse_duplicates", cfg.Timeline.CollapseDuplicates)

	// Conversation
	v.SetDefault("conversation.max_indent", cfg.Conversation.MaxIndent)
	v.SetDefault("conversation.allow_remote_fetch", cfg.Conversation.AllowRemoteFetch)
	v.SetDefault("conversation.oldest_first", cfg.Conversation.OldestFirst)
	v.SetDefault("conversation.build_timeout", cfg.Conversation.BuildTimeout)
	v.SetDefault("conversation.remote_queue_size", cfg.Conversation.RemoteQueueSize)

	// Duplicates
	v.SetDefault("duplicates.min_body_length", cfg.Duplicates.MinBodyLength)
	v.SetDefault("duplicates.max_time_delta", cfg.Duplicates.MaxTimeDelta)

	// Filter
	v.SetDefault("filter.hidden_keywords", cfg.Filter.HiddenKeywords)
	v.SetDefault("filter.hide_replies_not_from_known", cfg.Filter.HideRepliesNotFromKnown)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Set sets a Viper value by key. Used for CLI flag overrides.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// bindEnvVars binds THREADLINE_* environment variables for config keys.
// Viper's Unmarshal has issues with env vars on nested structs unless explicitly bound.
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		"global.data_dir",
		"global.config_dir",
		"database.path",
		"database.busy_timeout_ms",
		"database.item_cache_size",
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.enable_caller",
		"timeline.max_windows",
		"timeline.page_size",
		"timeline.collapse_duplicates",
		"conversation.max_indent",
		"conversation.allow_remote_fetch",
		"conversation.oldest_first",
		"conversation.build_timeout",
		"conversation.remote_queue_size",
		"duplicates.min_body_length",
		"duplicates.max_time_delta",
		"filter.hidden_keywords",
		"filter.hide_replies_not_from_known",
	}

	for _, key := range envBindings {
		// database.path -> THREADLINE_DATABASE_PATH
		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envVar)
	}
}

// applyEnvOverrides manually applies env var overrides to the config struct.
// Only values that differ from the defaults are applied.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	v := l.v
	defaults := DefaultConfig()

	if path := v.GetString("database.path"); path != "" {
		cfg.Database.Path = path
	}
	if dataDir := v.GetString("global.data_dir"); dataDir != "" {
		cfg.Global.DataDir = dataDir
	}
	if configDir := v.GetString("global.config_dir"); configDir != "" {
		cfg.Global.ConfigDir = configDir
	}
	if level := v.GetString("logging.level"); level != "" && level != defaults.Logging.Level {
		cfg.Logging.Level = level
	}
	if format := v.GetString("logging.format"); format != "" && format != defaults.Logging.Format {
		cfg.Logging.Format = format
	}
	if file := v.GetString("logging.file"); file != "" {
		cfg.Logging.File = file
	}
	if windows := v.GetInt("timeline.max_windows"); windows != 0 && windows != defaults.Timeline.MaxWindows {
		cfg.Timeline.MaxWindows = windows
	}
	if size := v.GetInt("timeline.page_size"); size != 0 && size != defaults.Timeline.PageSize {
		cfg.Timeline.PageSize = size
	}
}
