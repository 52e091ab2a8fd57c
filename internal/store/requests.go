package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tOgg1/threadline/internal/models"
)

// RecordFetchRequest stores a request for a missing item. Requesting an item
// again refreshes the existing request instead of adding a new one; an item
// already stored locally is not requested.
func (s *Store) RecordFetchRequest(ctx context.Context, req models.FetchRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid fetch request: %w", err)
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	return s.transaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM items WHERE id = ?`, req.ItemID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check item %d: %w", req.ItemID, err)
		}
		if exists > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO fetch_requests (id, item_id, requested_at, completed_at)
			VALUES (?, ?, ?, NULL)
			ON CONFLICT(item_id) DO UPDATE SET
				requested_at = excluded.requested_at,
				completed_at = NULL
		`, req.ID, req.ItemID, toNanos(req.RequestedAt))
		if err != nil {
			return fmt.Errorf("failed to record fetch request for %d: %w", req.ItemID, err)
		}
		return nil
	})
}

// PendingFetchRequests lists requests whose item has not arrived yet, oldest
// first.
func (s *Store) PendingFetchRequests(ctx context.Context) ([]models.FetchRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, requested_at
		FROM fetch_requests
		WHERE completed_at IS NULL
		ORDER BY requested_at, item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FetchRequest
	for rows.Next() {
		var req models.FetchRequest
		var requestedAt int64
		if err := rows.Scan(&req.ID, &req.ItemID, &requestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fetch request: %w", err)
		}
		req.RequestedAt = fromNanos(requestedAt)
		req.Status = models.FetchRequestPending
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch requests: %w", err)
	}
	return requests, nil
}
