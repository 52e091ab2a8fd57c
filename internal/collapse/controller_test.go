package collapse

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/threadline/internal/conversation"
	"github.com/tOgg1/threadline/internal/duplicates"
	"github.com/tOgg1/threadline/internal/models"
)

var base = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

func post(id int64, body string, after time.Duration) models.Item {
	at := base.Add(after)
	return models.Item{ID: id, AccountID: 1, ActorID: 1, Body: body, CreatedAt: at, SentAt: at, Status: models.StatusLoaded}
}

func timeline() []models.Item {
	fav := post(4, "status update number four", 3*time.Hour)
	fav.Favorited = true
	return []models.Item{
		post(1, "hello world", 0),
		post(2, "hello world, nice to meet you", time.Hour),
		post(3, "completely different words", 2*time.Hour),
		post(4, "status update number four", 3*time.Hour),
		fav,
		post(6, "<p>Completely   different</p> words", 5*time.Hour),
	}
}

func visibleIDs[T Recorder](c *Controller[T]) []int64 {
	var out []int64
	for _, v := range c.Visible() {
		out = append(out, v.Record().ID)
	}
	return out
}

func allIDs(c *Controller[models.Item]) []int64 {
	var out []int64
	for _, e := range c.Entries() {
		out = append(out, e.ID())
		for _, h := range e.Hidden {
			out = append(out, h.ID)
		}
	}
	return out
}

func TestCollapseAll(t *testing.T) {
	c := New(duplicates.New(nil), timeline())
	c.CollapseAll()

	require.Equal(t, []int64{2, 3, 4, 6}, visibleIDs(c))
	require.Equal(t, 1, c.HiddenCount(2))
	require.Zero(t, c.HiddenCount(3))

	entries := c.Entries()
	require.True(t, entries[2].Value.Favorited, "favorited copy stays visible")
	require.False(t, entries[2].Hidden[0].Favorited)
}

func TestCollapseAllIsIdempotent(t *testing.T) {
	c := New(duplicates.New(nil), timeline())
	c.CollapseAll()
	once := c.Entries()

	c.CollapseAll()
	require.Empty(t, cmp.Diff(once, c.Entries()))
}

func TestCollapseAllRepeatsUntilStable(t *testing.T) {
	// The first and second items are too far apart to compare, but the third
	// subsumes both.
	c := New(duplicates.New(nil), []models.Item{
		post(1, "hello world", 0),
		post(2, "hello world", 30*time.Hour),
		post(3, "hello world again", 20*time.Hour),
	})
	c.CollapseAll()

	require.Equal(t, []int64{3}, visibleIDs(c))
	require.Equal(t, 2, c.HiddenCount(3))
}

func TestExpandAllRestoresItems(t *testing.T) {
	items := timeline()
	c := New(duplicates.New(nil), items)
	before := allIDs(c)

	c.CollapseAll()
	require.Less(t, c.Len(), len(items))
	require.True(t, c.ExpandOne(0))

	sorted := cmpopts.SortSlices(func(a, b int64) bool { return a < b })
	require.Empty(t, cmp.Diff(before, visibleIDs(c), sorted))
	require.Len(t, c.Entries(), len(items))
}

func TestExpandOne(t *testing.T) {
	c := New(duplicates.New(nil), timeline())
	c.CollapseAll()

	require.True(t, c.ExpandOne(2))
	require.Equal(t, []int64{2, 1, 3, 4, 6}, visibleIDs(c))
	require.False(t, c.ExpandOne(2), "already expanded")
	require.False(t, c.ExpandOne(99))
	require.Equal(t, 1, c.HiddenCount(4))
}

func TestCollapseOneOnlyTouchesItsCluster(t *testing.T) {
	c := New(duplicates.New(nil), timeline())

	require.True(t, c.CollapseOne(4))
	require.Equal(t, []int64{1, 2, 3, 4, 6}, visibleIDs(c))
	require.Equal(t, 1, c.HiddenCount(4))

	require.False(t, c.CollapseOne(3), "nothing related next to it")
	require.False(t, c.CollapseOne(99))
	require.False(t, c.CollapseOne(0))
}

func TestCollapseConversationNodes(t *testing.T) {
	nodes := []*conversation.Node{
		{Item: post(1, "hello world", 0), HistoryOrder: 1},
		{Item: post(2, "hello world, nice to meet you", time.Hour), HistoryOrder: 2},
		{Item: post(3, "completely different words", 2*time.Hour), HistoryOrder: 3},
	}
	c := New(duplicates.New(nil), nodes)
	c.CollapseAll()

	require.Equal(t, []int64{2, 3}, visibleIDs(c))
	require.Same(t, nodes[0], c.Entries()[0].Hidden[0])
}
