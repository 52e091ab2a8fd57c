package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tOgg1/threadline/internal/models"
)

const itemColumns = `id, actor_id, account_id, created_at, sent_at, reply_to_id, recipient_id,
	body, status, favorited, reblogged, favoriting_action`

// SaveItems inserts or replaces items and their rebloggers in one
// transaction. Pending fetch requests for the saved items are completed.
func (s *Store) SaveItems(ctx context.Context, items ...models.Item) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("invalid item %d: %w", item.ID, err)
		}
	}
	if len(items) == 0 {
		return nil
	}

	now := toNanos(time.Now())
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO items (`+itemColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					actor_id = excluded.actor_id,
					account_id = excluded.account_id,
					created_at = excluded.created_at,
					sent_at = excluded.sent_at,
					reply_to_id = excluded.reply_to_id,
					recipient_id = excluded.recipient_id,
					body = excluded.body,
					status = excluded.status,
					favorited = excluded.favorited,
					reblogged = excluded.reblogged,
					favoriting_action = excluded.favoriting_action
			`,
				item.ID,
				item.ActorID,
				item.AccountID,
				toNanos(item.CreatedAt),
				toNanos(item.SentAt),
				item.ReplyToID,
				item.RecipientID,
				item.Body,
				string(item.Status),
				boolToInt(item.Favorited),
				boolToInt(item.Reblogged),
				boolToInt(item.FavoritingAction),
			)
			if err != nil {
				return fmt.Errorf("failed to save item %d: %w", item.ID, err)
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM rebloggers WHERE item_id = ?`, item.ID); err != nil {
				return fmt.Errorf("failed to clear rebloggers of %d: %w", item.ID, err)
			}
			for actorID, name := range item.Rebloggers {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO rebloggers (item_id, actor_id, name) VALUES (?, ?, ?)
				`, item.ID, actorID, name); err != nil {
					return fmt.Errorf("failed to save reblogger of %d: %w", item.ID, err)
				}
			}

			if _, err := tx.ExecContext(ctx, `
				UPDATE fetch_requests SET completed_at = ? WHERE item_id = ? AND completed_at IS NULL
			`, now, item.ID); err != nil {
				return fmt.Errorf("failed to complete fetch request for %d: %w", item.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		s.cache.Remove(item.ID)
	}
	s.log.Debug().Int("items", len(items)).Msg("saved items")
	return nil
}

// LoadItem returns the item with id or ErrNotFound.
func (s *Store) LoadItem(ctx context.Context, id int64) (models.Item, error) {
	if item, ok := s.cache.Get(id); ok {
		return item.Clone(), nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return models.Item{}, fmt.Errorf("failed to load item %d: %w", id, err)
	}

	items := []models.Item{item}
	if err := s.loadRebloggers(ctx, items); err != nil {
		return models.Item{}, err
	}
	s.cache.Add(id, items[0].Clone())
	return items[0], nil
}

// RepliesTo returns the identifiers of items replying to id, oldest first.
func (s *Store) RepliesTo(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM items WHERE reply_to_id = ? ORDER BY sent_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies to %d: %w", id, err)
	}
	defer rows.Close()

	var replies []int64
	for rows.Next() {
		var replyID int64
		if err := rows.Scan(&replyID); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, replyID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replies: %w", err)
	}
	return replies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var item models.Item
	var createdAt, sentAt int64
	var status string
	var favorited, reblogged, favoritingAction int

	if err := row.Scan(
		&item.ID,
		&item.ActorID,
		&item.AccountID,
		&createdAt,
		&sentAt,
		&item.ReplyToID,
		&item.RecipientID,
		&item.Body,
		&status,
		&favorited,
		&reblogged,
		&favoritingAction,
	); err != nil {
		return models.Item{}, err
	}

	item.CreatedAt = fromNanos(createdAt)
	item.SentAt = fromNanos(sentAt)
	item.Status = models.ItemStatus(status)
	item.Favorited = favorited != 0
	item.Reblogged = reblogged != 0
	item.FavoritingAction = favoritingAction != 0
	return item, nil
}

// loadRebloggers fills the reblogger maps of items in place. It must not be
// called while another result set is open.
func (s *Store) loadRebloggers(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	index := make(map[int64]int, len(items))
	args := make([]any, 0, len(items))
	for i, item := range items {
		index[item.ID] = i
		args = append(args, item.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, actor_id, name FROM rebloggers WHERE item_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query rebloggers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, actorID int64
		var name string
		if err := rows.Scan(&itemID, &actorID, &name); err != nil {
			return fmt.Errorf("failed to scan reblogger: %w", err)
		}
		item := &items[index[itemID]]
		if item.Rebloggers == nil {
			item.Rebloggers = make(map[int64]string)
		}
		item.Rebloggers[actorID] = name
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rebloggers: %w", err)
	}
	return nil
}
