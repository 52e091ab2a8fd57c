package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Context represents the current CLI context (selected account and the
// conversation last opened).
type Context struct {
	// AccountID is the account whose timeline is shown.
	AccountID int64 `yaml:"account,omitempty"`
	// AccountName is the human-readable account name (for display).
	AccountName string `yaml:"account_name,omitempty"`
	// LastConversationID is the item the last conversation was built from.
	LastConversationID int64 `yaml:"last_conversation,omitempty"`
	// UpdatedAt is when the context was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if no context is set.
func (c *Context) IsEmpty() bool {
	return c.AccountID == 0 && c.LastConversationID == 0
}

// HasAccount returns true if an account is selected.
func (c *Context) HasAccount() bool {
	return c.AccountID != 0
}

// Clear removes all context.
func (c *Context) Clear() {
	c.AccountID = 0
	c.AccountName = ""
	c.LastConversationID = 0
	c.UpdatedAt = time.Now()
}

// SetAccount selects an account. The last conversation belongs to the
// previous account and is cleared.
func (c *Context) SetAccount(id int64, name string) {
	c.AccountID = id
	c.AccountName = name
	c.LastConversationID = 0
	c.UpdatedAt = time.Now()
}

// SetConversation records the item a conversation was opened from.
func (c *Context) SetConversation(itemID int64) {
	c.LastConversationID = itemID
	c.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the context.
func (c *Context) String() string {
	if c.IsEmpty() {
		return "(no context set)"
	}
	result := ""
	if c.HasAccount() {
		name := c.AccountName
		if name == "" {
			name = fmt.Sprintf("#%d", c.AccountID)
		}
		result = "account:" + name
	}
	if c.LastConversationID != 0 {
		if result != "" {
			result += " "
		}
		result += fmt.Sprintf("conversation:%d", c.LastConversationID)
	}
	return result
}

// ContextStore manages loading and saving context.
type ContextStore struct {
	path string
	mu   sync.RWMutex
}

// NewContextStore creates a new context store.
// If path is empty, uses the default path (~/.config/threadline/context.yaml).
func NewContextStore(path string) *ContextStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "threadline", "context.yaml")
	}
	return &ContextStore{path: path}
}

// Path returns the context file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the context from disk.
// Returns an empty context if the file doesn't exist.
func (s *ContextStore) Load() (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := &Context{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ctx, nil
		}
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}

	return ctx, nil
}

// Save writes the context to disk.
func (s *ContextStore) Save(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	data, err := yaml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}

	return nil
}

// Clear removes the context file.
func (s *ContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove context file: %w", err)
	}
	return nil
}
