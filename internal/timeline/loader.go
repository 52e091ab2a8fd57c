package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/threadline/internal/logging"
)

// DefaultPageSize is the fetch limit used when none is configured.
const DefaultPageSize = 20

// ErrPageNeedsWindow is returned when a page reload is requested without
// naming the window to reload.
var ErrPageNeedsWindow = errors.New("page reload requires an existing window")

// PageFetcher is the backing-store query. It returns an empty page, not an
// error, when no more data exists in the requested direction.
type PageFetcher interface {
	FetchPage(ctx context.Context, query PageQuery) (*PageWindow, error)
}

// Loader fetches pages off the display thread and merges them into a
// Manager. Fetches may run in parallel; merges are applied by the Manager
// one at a time.
type Loader struct {
	manager  *Manager
	fetcher  PageFetcher
	pageSize int
	filter   Predicate
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPageSize sets the fetch limit.
func WithPageSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithFilter sets the predicate passed to every fetch.
func WithFilter(filter Predicate) LoaderOption {
	return func(l *Loader) {
		l.filter = filter
	}
}

// NewLoader creates a loader feeding manager from fetcher.
func NewLoader(manager *Manager, fetcher PageFetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		manager:  manager,
		fetcher:  fetcher,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Manager returns the manager this loader feeds.
func (l *Loader) Manager() *Manager {
	return l.manager
}

// Query builds the fetch parameters for direction from the current view.
// Extending an empty view falls back to the top of the timeline.
func (l *Loader) Query(direction Direction) (PageQuery, error) {
	query := PageQuery{Direction: direction, Limit: l.pageSize, Filter: l.filter}
	switch direction {
	case DirectionOlder:
		bound, id, ok := l.manager.OldestEdge()
		if !ok {
			query.Direction = DirectionTop
			return query, nil
		}
		query.Bound, query.BoundID = bound, id
	case DirectionYounger:
		bound, id, ok := l.manager.YoungestEdge()
		if !ok {
			query.Direction = DirectionTop
			return query, nil
		}
		query.Bound, query.BoundID = bound, id
	case DirectionCurrent:
		if l.manager.MayExtend(DirectionYounger) {
			if bound, ok := l.manager.YoungestBound(); ok {
				query.Bound = bound
			}
		}
	case DirectionTop, DirectionYoungest:
	case DirectionPage:
		return PageQuery{}, ErrPageNeedsWindow
	default:
		return PageQuery{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	return query, nil
}

// Load fetches one page in direction and merges it. A cancelled or failed
// fetch leaves the view untouched.
func (l *Loader) Load(ctx context.Context, direction Direction) (bool, error) {
	query, err := l.Query(direction)
	if err != nil {
		return false, err
	}
	page, err := l.fetch(ctx, query)
	if err != nil {
		return false, err
	}
	return l.manager.MergePage(page), nil
}

// Reload refetches one window in place.
func (l *Loader) Reload(ctx context.Context, window *PageWindow) (bool, error) {
	if window == nil || window.IsEmpty() {
		return false, ErrPageNeedsWindow
	}
	query := PageQuery{
		Direction: DirectionPage,
		Bound:     window.MinSent,
		MaxBound:  window.MaxSent,
		Limit:     max(l.pageSize, window.Len()),
		Filter:    l.filter,
	}
	page, err := l.fetch(ctx, query)
	if err != nil {
		return false, err
	}
	return l.manager.MergePage(page), nil
}

// LoadEdges fetches both edges of the view in parallel and merges the
// younger page before the older one. Nothing is merged unless both fetches
// succeed.
func (l *Loader) LoadEdges(ctx context.Context) error {
	if _, ok := l.manager.YoungestBound(); !ok {
		_, err := l.Load(ctx, DirectionTop)
		return err
	}

	var younger, older *PageWindow
	olderQuery, err := l.Query(DirectionOlder)
	if err != nil {
		return err
	}
	youngerQuery, err := l.Query(DirectionYounger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if l.manager.MayExtend(DirectionYounger) {
		g.Go(func() error {
			page, err := l.fetch(gctx, youngerQuery)
			younger = page
			return err
		})
	}
	if l.manager.MayExtend(DirectionOlder) {
		g.Go(func() error {
			page, err := l.fetch(gctx, olderQuery)
			older = page
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if younger != nil {
		l.manager.MergePage(younger)
	}
	if older != nil {
		l.manager.MergePage(older)
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, query PageQuery) (*PageWindow, error) {
	fetchID := uuid.NewString()
	log := logging.ComponentFrom(ctx, "timeline-loader").With().Str("fetch_id", fetchID).Str("direction", string(query.Direction)).Logger()

	started := time.Now()
	page, err := l.fetcher.FetchPage(ctx, query)
	if err != nil {
		log.Debug().Err(err).Msg("fetch failed")
		return nil, fmt.Errorf("fetch %s page: %w", query.Direction, err)
	}
	if err := ctx.Err(); err != nil {
		log.Debug().Msg("fetch cancelled before merge")
		return nil, err
	}
	log.Debug().Int("items", page.Len()).Dur("took", time.Since(started)).Msg("fetched page")
	return page, nil
}
