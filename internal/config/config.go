// Package config handles threadline configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for threadline.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Timeline paging settings
	Timeline TimelineConfig `yaml:"timeline" mapstructure:"timeline"`

	// Conversation threading settings
	Conversation ConversationConfig `yaml:"conversation" mapstructure:"conversation"`

	// Duplicate detection settings
	Duplicates DuplicatesConfig `yaml:"duplicates" mapstructure:"duplicates"`

	// Filter holds the keyword and participant rules applied while paging.
	Filter FilterConfig `yaml:"filter" mapstructure:"filter"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where threadline stores its data (default: ~/.local/share/threadline).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/threadline).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`

	// ItemCacheSize is the number of items kept in the load cache.
	ItemCacheSize int `yaml:"item_cache_size" mapstructure:"item_cache_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TimelineConfig controls the window manager.
type TimelineConfig struct {
	// MaxWindows caps the number of pages kept in view.
	MaxWindows int `yaml:"max_windows" mapstructure:"max_windows"`

	// PageSize is the number of items requested per fetch.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// CollapseDuplicates folds adjacent duplicates in the timeline view.
	CollapseDuplicates bool `yaml:"collapse_duplicates" mapstructure:"collapse_duplicates"`
}

// ConversationConfig controls the conversation builder.
type ConversationConfig struct {
	// MaxIndent caps visual nesting.
	MaxIndent int `yaml:"max_indent" mapstructure:"max_indent"`

	// AllowRemoteFetch requests missing ancestors from the network.
	AllowRemoteFetch bool `yaml:"allow_remote_fetch" mapstructure:"allow_remote_fetch"`

	// OldestFirst shows the oldest post at the top.
	OldestFirst bool `yaml:"oldest_first" mapstructure:"oldest_first"`

	// BuildTimeout bounds one interactive conversation build.
	BuildTimeout time.Duration `yaml:"build_timeout" mapstructure:"build_timeout"`

	// RemoteQueueSize is the buffer of pending remote fetch requests.
	RemoteQueueSize int `yaml:"remote_queue_size" mapstructure:"remote_queue_size"`
}

// DuplicatesConfig controls text-similarity duplicate detection.
type DuplicatesConfig struct {
	// MinBodyLength is the minimum cleaned body length compared by text.
	MinBodyLength int `yaml:"min_body_length" mapstructure:"min_body_length"`

	// MaxTimeDelta is the maximum distance between two posts compared by text.
	MaxTimeDelta time.Duration `yaml:"max_time_delta" mapstructure:"max_time_delta"`
}

// FilterConfig holds user-configured hiding rules.
type FilterConfig struct {
	// HiddenKeywords are glob patterns matched against cleaned bodies.
	HiddenKeywords []string `yaml:"hidden_keywords" mapstructure:"hidden_keywords"`

	// HideRepliesNotFromKnown drops replies by actors the account does not know.
	HideRepliesNotFromKnown bool `yaml:"hide_replies_not_from_known" mapstructure:"hide_replies_not_from_known"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "threadline"),
			ConfigDir: filepath.Join(homeDir, ".config", "threadline"),
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/threadline.db
			BusyTimeoutMs: 5000,
			ItemCacheSize: 2048,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Timeline: TimelineConfig{
			MaxWindows:         5,
			PageSize:           20,
			CollapseDuplicates: true,
		},
		Conversation: ConversationConfig{
			MaxIndent:        19,
			AllowRemoteFetch: false,
			OldestFirst:      true,
			BuildTimeout:     10 * time.Second,
			RemoteQueueSize:  64,
		},
		Duplicates: DuplicatesConfig{
			MinBodyLength: 5,
			MaxTimeDelta:  24 * time.Hour,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}
	if c.Database.ItemCacheSize < 1 {
		return fmt.Errorf("database.item_cache_size must be at least 1")
	}
	if c.Timeline.MaxWindows < 1 {
		return fmt.Errorf("timeline.max_windows must be at least 1")
	}
	if c.Timeline.PageSize < 1 {
		return fmt.Errorf("timeline.page_size must be at least 1")
	}
	if c.Conversation.MaxIndent < 0 {
		return fmt.Errorf("conversation.max_indent must not be negative")
	}
	if c.Conversation.BuildTimeout < 0 {
		return fmt.Errorf("conversation.build_timeout must not be negative")
	}
	if c.Conversation.RemoteQueueSize < 1 {
		return fmt.Errorf("conversation.remote_queue_size must be at least 1")
	}
	if c.Duplicates.MinBodyLength < 0 {
		return fmt.Errorf("duplicates.min_body_length must not be negative")
	}
	if c.Duplicates.MaxTimeDelta < 0 {
		return fmt.Errorf("duplicates.max_time_delta must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
		// ok
	default:
		return fmt.Errorf("logging.format must be one of console, json")
	}
	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "threadline.db")
}
