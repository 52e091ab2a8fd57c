package cli

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tOgg1/threadline/internal/config"
	"github.com/tOgg1/threadline/internal/duplicates"
	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
	"github.com/tOgg1/threadline/internal/store"
)

const previewLength = 72

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath(),
		store.WithBusyTimeout(cfg.Database.BusyTimeoutMs),
		store.WithCacheSize(cfg.Database.ItemCacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func newClassifier(cfg *config.Config, accounts models.AccountResolver) *duplicates.Classifier {
	return duplicates.New(accounts,
		duplicates.WithMinBodyLength(cfg.Duplicates.MinBodyLength),
		duplicates.WithMaxTimeDelta(cfg.Duplicates.MaxTimeDelta),
	)
}

func contextStore(cfg *config.Config) *config.ContextStore {
	return config.NewContextStore(filepath.Join(cfg.Global.ConfigDir, "context.yaml"))
}

// accountContext scopes the command's logger to the selected account.
func accountContext(ctx context.Context, current *config.Context) context.Context {
	if current == nil || !current.HasAccount() {
		return ctx
	}
	return logging.WithContext(ctx, logging.WithAccount(logging.FromContext(ctx), current.AccountID))
}

var textPolicy = bluemonday.StrictPolicy()

// bodyPreview renders a post body as one shortened line of plain text.
func bodyPreview(body string) string {
	return logging.Preview(html.UnescapeString(textPolicy.Sanitize(body)), previewLength)
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}
