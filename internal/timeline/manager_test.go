package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/threadline/internal/models"
)

var base = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

func sentAt(id int64) time.Time {
	return base.Add(time.Duration(id) * time.Minute)
}

func post(id int64) models.Item {
	return models.Item{ID: id, ActorID: 7, AccountID: 1, CreatedAt: sentAt(id), SentAt: sentAt(id), Body: "post", Status: models.StatusLoaded}
}

// span returns items from -> to inclusive, youngest first.
func span(from, to int64) []models.Item {
	var items []models.Item
	for id := from; id >= to; id-- {
		items = append(items, post(id))
	}
	return items
}

func page(direction Direction, items ...models.Item) *PageWindow {
	return NewPageWindow(PageQuery{Direction: direction, Limit: 20}, items, false, false)
}

func ids(items []models.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func idRange(from, to int64) []int64 {
	return ids(span(from, to))
}

func TestMergeSequenceShowsEachItemOnce(t *testing.T) {
	m := NewManager()

	require.True(t, m.MergePage(page(DirectionTop, span(30, 21)...)))
	// Inclusive fetch repeats the boundary item.
	require.True(t, m.MergePage(page(DirectionOlder, span(21, 11)...)))
	require.True(t, m.MergePage(page(DirectionOlder, span(10, 1)...)))

	require.Equal(t, idRange(30, 1), ids(m.Items()))
	require.Equal(t, 30, m.Size())
	require.Len(t, m.Windows(), 3)
}

func TestOlderPageItemsYoungerThanViewAreDropped(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(30, 21)...)))

	items := append([]models.Item{post(25)}, span(20, 15)...)
	require.True(t, m.MergePage(page(DirectionOlder, items...)))

	require.Equal(t, idRange(30, 15), ids(m.Items()))
}

func TestYoungerPageDropsIdentifiersAlreadyInView(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(10, 6)...)))

	moved := post(7)
	moved.SentAt = sentAt(13)
	require.True(t, m.MergePage(page(DirectionYounger, moved, post(12), post(11))))

	require.Equal(t, idRange(12, 6), ids(m.Items()))
}

func TestYoungerMergeEvictsOldestWindow(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(10, 9)...)))
	for hi := int64(8); hi > 0; hi -= 2 {
		require.True(t, m.MergePage(page(DirectionOlder, span(hi, hi-1)...)))
	}
	require.Len(t, m.Windows(), DefaultMaxWindows)

	require.True(t, m.MergePage(page(DirectionYounger, span(12, 11)...)))

	require.Len(t, m.Windows(), DefaultMaxWindows)
	require.Equal(t, idRange(12, 3), ids(m.Items()))
}

func TestOlderMergeEvictsYoungestWindow(t *testing.T) {
	m := NewManager(WithMaxWindows(2))
	require.True(t, m.MergePage(page(DirectionTop, span(10, 9)...)))
	require.True(t, m.MergePage(page(DirectionOlder, span(8, 7)...)))
	require.True(t, m.MergePage(page(DirectionOlder, span(6, 5)...)))

	require.Len(t, m.Windows(), 2)
	require.Equal(t, idRange(8, 5), ids(m.Items()))
}

func TestTopAndCurrentReplaceView(t *testing.T) {
	for _, dir := range []Direction{DirectionTop, DirectionCurrent} {
		t.Run(string(dir), func(t *testing.T) {
			m := NewManager()
			require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
			require.True(t, m.MergePage(page(DirectionOlder, span(5, 1)...)))

			require.True(t, m.MergePage(page(dir, span(20, 18)...)))
			require.Len(t, m.Windows(), 1)
			require.Equal(t, idRange(20, 18), ids(m.Items()))
		})
	}
}

func TestYoungestSplicesOnlyNewItems(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	require.True(t, m.MergePage(page(DirectionOlder, span(5, 1)...)))

	require.True(t, m.MergePage(page(DirectionYoungest, span(12, 8)...)))

	require.Len(t, m.Windows(), 3)
	require.Equal(t, idRange(12, 1), ids(m.Items()))
}

func TestYoungestWithNothingNewLeavesViewUnchanged(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	before := m.Windows()

	require.False(t, m.MergePage(page(DirectionYoungest, span(10, 6)...)))
	require.Equal(t, before, m.Windows())
}

func TestYoungestReplacesViewWhenHeadMayHaveYounger(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(10, 6)...)))
	require.True(t, m.MayExtend(DirectionYounger))

	require.True(t, m.MergePage(page(DirectionYoungest, span(40, 38)...)))
	require.Len(t, m.Windows(), 1)
	require.Equal(t, idRange(40, 38), ids(m.Items()))
	require.False(t, m.MayExtend(DirectionYounger))
}

func reloadPage(minID, maxID int64, items ...models.Item) *PageWindow {
	query := PageQuery{Direction: DirectionPage, Bound: sentAt(minID), MaxBound: sentAt(maxID), Limit: 20}
	return NewPageWindow(query, items, false, false)
}

func TestPageReloadReplacesMatchingWindow(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	require.True(t, m.MergePage(page(DirectionOlder, span(5, 1)...)))

	refreshed := span(5, 1)
	refreshed[2].Body = "edited upstream"
	require.True(t, m.MergePage(reloadPage(1, 5, refreshed...)))

	require.Len(t, m.Windows(), 2)
	require.Equal(t, idRange(10, 1), ids(m.Items()))
	item, ok := m.ItemAt(7)
	require.True(t, ok)
	require.Equal(t, int64(3), item.ID)
	require.Equal(t, "edited upstream", item.Body)
}

func TestPageReloadWithUnknownBounds(t *testing.T) {
	t.Run("single window resets", func(t *testing.T) {
		m := NewManager()
		require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
		require.True(t, m.MergePage(reloadPage(50, 52, span(52, 50)...)))
		require.Equal(t, idRange(52, 50), ids(m.Items()))
	})

	t.Run("several windows append", func(t *testing.T) {
		m := NewManager()
		require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
		require.True(t, m.MergePage(page(DirectionOlder, span(5, 3)...)))
		require.True(t, m.MergePage(reloadPage(1, 2, span(2, 1)...)))
		require.Len(t, m.Windows(), 3)
		require.Equal(t, idRange(10, 1), ids(m.Items()))
	})
}

func TestMalformedPagesAreIgnored(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	before := m.Items()

	require.False(t, m.MergePage(nil))
	require.False(t, m.MergePage(page(Direction("sideways"), span(20, 18)...)))
	require.False(t, m.MergePage(&PageWindow{Query: PageQuery{Direction: DirectionOlder}, Items: span(5, 1)}))

	require.Equal(t, before, m.Items())
}

func TestMayExtend(t *testing.T) {
	m := NewManager()
	require.True(t, m.MayExtend(DirectionOlder))
	require.True(t, m.MayExtend(DirectionYounger))

	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	require.False(t, m.MayExtend(DirectionYounger))
	require.True(t, m.MayExtend(DirectionOlder))

	require.True(t, m.MergePage(page(DirectionOlder)))
	require.False(t, m.MayExtend(DirectionOlder))

	oldest, ok := m.OldestBound()
	require.True(t, ok)
	require.Equal(t, sentAt(6), oldest)
	youngest, ok := m.YoungestBound()
	require.True(t, ok)
	require.Equal(t, sentAt(10), youngest)
}

func TestEmptyOlderPageAtCapKeepsItems(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(25, 21)...)))
	for hi := int64(20); hi >= 5; hi -= 5 {
		require.True(t, m.MergePage(page(DirectionOlder, span(hi, hi-4)...)))
	}
	require.Len(t, m.Windows(), DefaultMaxWindows)
	require.Equal(t, 25, m.Size())
	require.True(t, m.MayExtend(DirectionOlder))

	require.True(t, m.MergePage(page(DirectionOlder)))
	require.Len(t, m.Windows(), DefaultMaxWindows)
	require.Equal(t, 25, m.Size())
	require.Equal(t, idRange(25, 1), ids(m.Items()))
	require.False(t, m.MayExtend(DirectionOlder))

	require.False(t, m.MergePage(page(DirectionOlder)), "edge already closed")
}

func TestEmptyYoungerPageClosesHead(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionCurrent, span(10, 6)...)))
	require.True(t, m.MayExtend(DirectionYounger))
	shared := m.Windows()[0]

	require.True(t, m.MergePage(page(DirectionYounger)))
	require.Len(t, m.Windows(), 1)
	require.Equal(t, idRange(10, 6), ids(m.Items()))
	require.False(t, m.MayExtend(DirectionYounger))
	require.False(t, shared.YoungestReached, "published windows must not change")
}

func TestItemAt(t *testing.T) {
	m := NewManager()
	_, ok := m.ItemAt(0)
	require.False(t, ok)

	require.True(t, m.MergePage(page(DirectionTop, span(10, 8)...)))
	require.True(t, m.MergePage(page(DirectionOlder, span(7, 6)...)))

	item, ok := m.ItemAt(0)
	require.True(t, ok)
	require.Equal(t, int64(10), item.ID)
	item, ok = m.ItemAt(3)
	require.True(t, ok)
	require.Equal(t, int64(7), item.ID)

	_, ok = m.ItemAt(m.Size())
	require.False(t, ok)
	_, ok = m.ItemAt(-1)
	require.False(t, ok)
}

func TestUpdateItem(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	shared := m.Windows()[0]

	fresh := post(8)
	fresh.Favorited = true
	require.True(t, m.UpdateItem(fresh))

	item, ok := m.ItemAt(2)
	require.True(t, ok)
	require.True(t, item.Favorited)
	require.False(t, shared.Items[2].Favorited, "published windows must not change")

	moved := post(8)
	moved.SentAt = sentAt(30)
	require.False(t, m.UpdateItem(moved))
	require.False(t, m.UpdateItem(post(99)))
}

func TestReset(t *testing.T) {
	m := NewManager()
	require.True(t, m.MergePage(page(DirectionTop, span(10, 6)...)))
	m.Reset()
	require.Zero(t, m.Size())
	_, ok := m.YoungestBound()
	require.False(t, ok)
}

func TestNewPageWindowMarkers(t *testing.T) {
	require.False(t, page(DirectionTop, post(1)).MayHaveYounger())
	require.False(t, page(DirectionOlder).MayHaveOlder())
	require.False(t, page(DirectionYounger).MayHaveYounger())

	p := page(DirectionOlder, span(5, 3)...)
	require.True(t, p.MayHaveOlder())
	require.Equal(t, sentAt(3), p.MinSent)
	require.Equal(t, sentAt(5), p.MaxSent)
	require.True(t, p.Contains(4))
	require.False(t, p.Contains(6))

	d, ok := ParseDirection("youngest")
	require.True(t, ok)
	require.Equal(t, DirectionYoungest, d)
	_, ok = ParseDirection("left")
	require.False(t, ok)
}
