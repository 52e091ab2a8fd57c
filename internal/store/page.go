package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/tOgg1/threadline/internal/models"
	"github.com/tOgg1/threadline/internal/timeline"
)

// scanBatch is how many rows are read per round while filling a page.
const scanBatch = 64

// cursor is a keyset position in (sent_at, id) order.
type cursor struct {
	sent int64
	id   int64
	set  bool
}

// FetchPage answers a timeline page query. Items come back youngest first;
// the filter is applied before the limit is filled, and an exhausted scan
// marks the edge it was heading for as reached.
func (s *Store) FetchPage(ctx context.Context, query timeline.PageQuery) (*timeline.PageWindow, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = timeline.DefaultPageSize
	}

	ascending := query.Direction == timeline.DirectionYounger
	var where string
	var args []any
	switch query.Direction {
	case timeline.DirectionTop, timeline.DirectionYoungest:
	case timeline.DirectionCurrent:
		if !query.Bound.IsZero() {
			where, args = "sent_at <= ?", []any{toNanos(query.Bound)}
		}
	case timeline.DirectionOlder:
		where, args = edgeClause("<", query)
	case timeline.DirectionYounger:
		where, args = edgeClause(">", query)
	case timeline.DirectionPage:
		where, args = "sent_at >= ? AND sent_at <= ?", []any{toNanos(query.Bound), toNanos(query.MaxBound)}
	default:
		return nil, fmt.Errorf("%w: %q", timeline.ErrInvalidDirection, query.Direction)
	}

	items, exhausted, err := s.scan(ctx, where, args, ascending, limit, query.Filter)
	if err != nil {
		return nil, err
	}
	if ascending {
		slices.Reverse(items)
	}
	if err := s.loadRebloggers(ctx, items); err != nil {
		return nil, err
	}

	youngestReached, oldestReached := false, false
	switch query.Direction {
	case timeline.DirectionYounger:
		youngestReached = exhausted
	case timeline.DirectionPage:
	case timeline.DirectionCurrent:
		youngestReached = query.Bound.IsZero()
		oldestReached = exhausted
	default:
		oldestReached = exhausted
	}
	return timeline.NewPageWindow(query, items, youngestReached, oldestReached), nil
}

// edgeClause continues past the query's edge. With an edge id the
// (sent_at, id) keyset is used, so rows sharing the edge's sent time are
// still reached.
func edgeClause(past string, query timeline.PageQuery) (string, []any) {
	bound := toNanos(query.Bound)
	if query.BoundID == 0 {
		return "sent_at " + past + " ?", []any{bound}
	}
	return fmt.Sprintf("(sent_at %s ? OR (sent_at = ? AND id %s ?))", past, past), []any{bound, bound, query.BoundID}
}

// scan reads rows in batches until limit items pass keep or the rows run
// out. Each batch is closed before the next query so a single-connection
// database never deadlocks.
func (s *Store) scan(ctx context.Context, where string, args []any, ascending bool, limit int, keep timeline.Predicate) ([]models.Item, bool, error) {
	order, past := "DESC", "<"
	if ascending {
		order, past = "ASC", ">"
	}

	var items []models.Item
	var pos cursor
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		clauses := ""
		batchArgs := append([]any(nil), args...)
		if where != "" {
			clauses = " WHERE " + where
		}
		if pos.set {
			keyset := fmt.Sprintf("(sent_at %s ? OR (sent_at = ? AND id %s ?))", past, past)
			if clauses == "" {
				clauses = " WHERE " + keyset
			} else {
				clauses += " AND " + keyset
			}
			batchArgs = append(batchArgs, pos.sent, pos.sent, pos.id)
		}
		batchArgs = append(batchArgs, scanBatch)

		batch, err := s.queryItems(ctx, `SELECT `+itemColumns+` FROM items`+clauses+
			` ORDER BY sent_at `+order+`, id `+order+` LIMIT ?`, batchArgs...)
		if err != nil {
			return nil, false, err
		}

		for _, item := range batch {
			if keep != nil && !keep(item) {
				continue
			}
			if len(items) == limit {
				return items, false, nil
			}
			items = append(items, item)
		}
		if len(batch) < scanBatch {
			return items, true, nil
		}
		last := batch[len(batch)-1]
		pos = cursor{sent: toNanos(last.SentAt), id: last.ID, set: true}
	}
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}
