package timeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/threadline/internal/models"
)

type fetchFunc func(ctx context.Context, query PageQuery) (*PageWindow, error)

type stubFetcher struct {
	mu      sync.Mutex
	queries []PageQuery
	fn      fetchFunc
}

func (s *stubFetcher) FetchPage(ctx context.Context, query PageQuery) (*PageWindow, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return s.fn(ctx, query)
}

func (s *stubFetcher) directions() []Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Direction, 0, len(s.queries))
	for _, q := range s.queries {
		out = append(out, q.Direction)
	}
	return out
}

// timelineFetcher serves pages over ids 1..n, one minute apart.
func timelineFetcher(n int64) *stubFetcher {
	return &stubFetcher{fn: func(_ context.Context, query PageQuery) (*PageWindow, error) {
		var items []models.Item
		for id := n; id >= 1 && len(items) < query.Limit; id-- {
			sent := sentAt(id)
			switch query.Direction {
			case DirectionOlder:
				if !sent.Before(query.Bound) {
					continue
				}
			case DirectionYounger:
				if !sent.After(query.Bound) {
					continue
				}
			}
			items = append(items, post(id))
		}
		if query.Direction == DirectionYounger {
			// The closest younger items, not the newest ones.
			var closest []models.Item
			for id := int64(1); id <= n && len(closest) < query.Limit; id++ {
				if sentAt(id).After(query.Bound) {
					closest = append([]models.Item{post(id)}, closest...)
				}
			}
			items = closest
		}
		return NewPageWindow(query, items, false, len(items) > 0 && items[len(items)-1].ID == 1), nil
	}}
}

func TestLoaderQueryFallsBackToTopOnEmptyView(t *testing.T) {
	l := NewLoader(NewManager(), timelineFetcher(10))

	for _, dir := range []Direction{DirectionOlder, DirectionYounger} {
		q, err := l.Query(dir)
		require.NoError(t, err)
		require.Equal(t, DirectionTop, q.Direction)
	}

	_, err := l.Query(DirectionPage)
	require.ErrorIs(t, err, ErrPageNeedsWindow)
	_, err = l.Query(Direction("sideways"))
	require.ErrorIs(t, err, ErrInvalidDirection)
}

func TestLoaderQueryCarriesEdgeIDs(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(8, 5)...)))
	l := NewLoader(m, timelineFetcher(10))

	older, err := l.Query(DirectionOlder)
	require.NoError(t, err)
	require.Equal(t, sentAt(5), older.Bound)
	require.Equal(t, int64(5), older.BoundID)

	younger, err := l.Query(DirectionYounger)
	require.NoError(t, err)
	require.Equal(t, sentAt(8), younger.Bound)
	require.Equal(t, int64(8), younger.BoundID)
}

func TestLoaderPagesThroughTimeline(t *testing.T) {
	fetcher := timelineFetcher(25)
	l := NewLoader(NewManager(), fetcher, WithPageSize(10))
	ctx := context.Background()

	changed, err := l.Load(ctx, DirectionTop)
	require.NoError(t, err)
	require.True(t, changed)

	for l.Manager().MayExtend(DirectionOlder) {
		_, err := l.Load(ctx, DirectionOlder)
		require.NoError(t, err)
	}

	require.Equal(t, idRange(25, 1), ids(l.Manager().Items()))
	require.Equal(t, []Direction{DirectionTop, DirectionOlder, DirectionOlder}, fetcher.directions())
}

func TestLoaderPassesFilterAndLimit(t *testing.T) {
	var seen PageQuery
	fetcher := &stubFetcher{fn: func(_ context.Context, query PageQuery) (*PageWindow, error) {
		seen = query
		return NewPageWindow(query, nil, false, false), nil
	}}
	keepAll := func(models.Item) bool { return true }
	l := NewLoader(NewManager(), fetcher, WithPageSize(7), WithFilter(keepAll))

	_, err := l.Load(context.Background(), DirectionTop)
	require.NoError(t, err)
	require.Equal(t, 7, seen.Limit)
	require.NotNil(t, seen.Filter)
}

func TestLoaderCancelledFetchLeavesViewUnchanged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &stubFetcher{fn: func(_ context.Context, query PageQuery) (*PageWindow, error) {
		cancel()
		return NewPageWindow(query, span(10, 1), false, false), nil
	}}
	l := NewLoader(NewManager(), fetcher)

	changed, err := l.Load(ctx, DirectionTop)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, changed)
	require.Zero(t, l.Manager().Size())
}

func TestLoaderFetchErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	fetcher := &stubFetcher{fn: func(context.Context, PageQuery) (*PageWindow, error) {
		return nil, boom
	}}
	l := NewLoader(NewManager(), fetcher)

	_, err := l.Load(context.Background(), DirectionTop)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "fetch top page")
}

func TestLoaderReload(t *testing.T) {
	fetcher := &stubFetcher{fn: func(_ context.Context, query PageQuery) (*PageWindow, error) {
		if query.Direction == DirectionPage {
			items := span(10, 6)
			items[0].Body = "edited"
			return NewPageWindow(query, items, true, false), nil
		}
		return NewPageWindow(query, span(10, 6), false, false), nil
	}}
	l := NewLoader(NewManager(), fetcher)
	ctx := context.Background()

	_, err := l.Load(ctx, DirectionTop)
	require.NoError(t, err)

	_, err = l.Reload(ctx, nil)
	require.ErrorIs(t, err, ErrPageNeedsWindow)

	changed, err := l.Reload(ctx, l.Manager().Windows()[0])
	require.NoError(t, err)
	require.True(t, changed)

	item, ok := l.Manager().ItemAt(0)
	require.True(t, ok)
	require.Equal(t, "edited", item.Body)
}

func TestLoadEdgesOnEmptyViewLoadsTop(t *testing.T) {
	fetcher := timelineFetcher(5)
	l := NewLoader(NewManager(), fetcher)

	require.NoError(t, l.LoadEdges(context.Background()))
	require.Equal(t, []Direction{DirectionTop}, fetcher.directions())
	require.Equal(t, idRange(5, 1), ids(l.Manager().Items()))
}

func TestLoadEdgesExtendsOpenEdges(t *testing.T) {
	fetcher := timelineFetcher(30)
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(20, 16)...)))
	l := NewLoader(m, fetcher, WithPageSize(5))

	require.NoError(t, l.LoadEdges(context.Background()))

	require.ElementsMatch(t, []Direction{DirectionYounger, DirectionOlder}, fetcher.directions())
	require.Equal(t, idRange(25, 11), ids(m.Items()))
}

func TestLoadEdgesMergesNothingOnFailure(t *testing.T) {
	boom := errors.New("boom")
	fetcher := &stubFetcher{fn: func(_ context.Context, query PageQuery) (*PageWindow, error) {
		if query.Direction == DirectionOlder {
			return nil, boom
		}
		return NewPageWindow(query, span(25, 21), false, false), nil
	}}
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(20, 16)...)))
	l := NewLoader(m, fetcher)

	require.ErrorIs(t, l.LoadEdges(context.Background()), boom)
	require.Equal(t, idRange(20, 16), ids(m.Items()))
}
