package timeline

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
)

// DefaultMaxWindows caps the number of pages kept in view.
const DefaultMaxWindows = 5

// Merge rejection reasons.
var (
	ErrNilPage          = errors.New("page is nil")
	ErrInvalidDirection = errors.New("page direction is missing or unknown")
	ErrMissingBounds    = errors.New("page has items but no sent-time bounds")
)

// Manager holds the pages currently in view, youngest first. All merges are
// serialized; readers always see a fully merged state.
type Manager struct {
	mu         sync.RWMutex
	maxWindows int
	windows    []*PageWindow
	log        zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxWindows sets the window cap.
func WithMaxWindows(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxWindows = n
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = logger
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		maxWindows: DefaultMaxWindows,
		log:        logging.Component("timeline"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MergePage merges a freshly fetched page into the view. A malformed page is
// logged and ignored; the previous state is kept. It reports whether the
// view changed.
func (m *Manager) MergePage(page *PageWindow) bool {
	if err := validatePage(page); err != nil {
		m.log.Warn().Err(err).Msg("rejecting malformed page")
		return false
	}
	page = m.dropOutOfBounds(page)

	m.mu.Lock()
	defer m.mu.Unlock()

	windows, at, atHead := m.insert(append([]*PageWindow(nil), m.windows...), page)
	if at < 0 {
		return false
	}
	inserted := m.dropRepeatedIDs(windows, at)
	windows[at] = inserted
	windows = m.evict(windows, atHead)

	m.windows = windows
	m.log.Debug().
		Str("direction", string(page.Query.Direction)).
		Int("items", inserted.Len()).
		Int("windows", len(windows)).
		Msg("merged page")
	return true
}

// insert places page into windows and returns the new list, the index of the
// inserted page (-1 when nothing changed) and whether it went in at the
// young end.
func (m *Manager) insert(windows []*PageWindow, page *PageWindow) ([]*PageWindow, int, bool) {
	switch page.Query.Direction {
	case DirectionTop, DirectionCurrent:
		return []*PageWindow{page}, 0, true

	case DirectionYoungest:
		if len(windows) == 0 || windows[0].MayHaveYounger() {
			return []*PageWindow{page}, 0, true
		}
		page = m.trimCoveredByHead(page, windows[0])
		if page.IsEmpty() {
			return windows, -1, true
		}
		return append([]*PageWindow{page}, windows...), 0, true

	case DirectionOlder:
		if len(windows) == 0 {
			return []*PageWindow{page}, 0, true
		}
		last := len(windows) - 1
		if neighbor := nearestNonEmpty(windows, last, -1); neighbor != nil {
			page = m.removeDuplicatesAcross(page, neighbor, true)
		}
		if page.IsEmpty() {
			return m.closeEdge(windows, last, page.OldestReached, true)
		}
		windows = append(windows, page)
		return windows, len(windows) - 1, false

	case DirectionYounger:
		if len(windows) == 0 {
			return []*PageWindow{page}, 0, true
		}
		if neighbor := nearestNonEmpty(windows, 0, 1); neighbor != nil {
			page = m.removeDuplicatesAcross(page, neighbor, false)
		}
		if page.IsEmpty() {
			return m.closeEdge(windows, 0, page.YoungestReached, false)
		}
		return append([]*PageWindow{page}, windows...), 0, true

	default:
		found := -1
		for i, w := range windows {
			if w.MinSent.Equal(page.Query.Bound) && w.MaxSent.Equal(page.Query.MaxBound) {
				found = i
				break
			}
		}
		if found >= 0 {
			if younger := nearestNonEmpty(windows, found-1, -1); younger != nil {
				page = m.removeDuplicatesAcross(page, younger, true)
			}
			if older := nearestNonEmpty(windows, found+1, 1); older != nil {
				page = m.removeDuplicatesAcross(page, older, false)
			}
			windows[found] = page
			return windows, found, false
		}
		if len(windows) < 2 {
			return []*PageWindow{page}, 0, true
		}
		windows = append(windows, page)
		return windows, len(windows) - 1, false
	}
}

// closeEdge records an empty extension on the edge window at index at
// instead of storing an empty window, so reaching the end of the timeline
// never evicts loaded items.
func (m *Manager) closeEdge(windows []*PageWindow, at int, reached, older bool) ([]*PageWindow, int, bool) {
	edge := windows[at]
	if !reached || (older && edge.OldestReached) || (!older && edge.YoungestReached) {
		return windows, -1, !older
	}
	next := edge.withItems(edge.Items)
	if older {
		next.OldestReached = true
	} else {
		next.YoungestReached = true
	}
	windows[at] = next
	return windows, at, !older
}

// removeDuplicatesAcross drops items of page that belong to neighbor. When
// pageIsOlder the page sits after neighbor and no item may be younger than
// neighbor's oldest item; otherwise no item may be older than neighbor's
// youngest item. Items exactly on the boundary are checked by identifier.
func (m *Manager) removeDuplicatesAcross(page, neighbor *PageWindow, pageIsOlder bool) *PageWindow {
	boundary := neighbor.MaxSent
	if pageIsOlder {
		boundary = neighbor.MinSent
	}

	kept := make([]models.Item, 0, len(page.Items))
	for _, item := range page.Items {
		switch {
		case pastBoundary(item.SentAt, boundary, pageIsOlder):
			m.anomaly(item, "item crosses page boundary")
		case item.SentAt.Equal(boundary) && neighborHasAt(neighbor, item.ID, boundary):
			m.log.Debug().Int64("item_id", item.ID).Msg("dropping item fetched twice at page boundary")
		default:
			kept = append(kept, item)
		}
	}
	if len(kept) == len(page.Items) {
		return page
	}
	return page.withItems(kept)
}

// trimCoveredByHead keeps only the part of a youngest page that is newer
// than the current head.
func (m *Manager) trimCoveredByHead(page, head *PageWindow) *PageWindow {
	if head.IsEmpty() {
		return page
	}
	kept := make([]models.Item, 0, len(page.Items))
	for _, item := range page.Items {
		if item.SentAt.Before(head.MaxSent) {
			continue
		}
		if item.SentAt.Equal(head.MaxSent) && head.Contains(item.ID) {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(page.Items) {
		return page
	}
	return page.withItems(kept)
}

// dropRepeatedIDs removes items of windows[at] whose identifier already
// appears elsewhere in the view or earlier in the same page.
func (m *Manager) dropRepeatedIDs(windows []*PageWindow, at int) *PageWindow {
	page := windows[at]
	seen := make(map[int64]struct{})
	for i, w := range windows {
		if i == at {
			continue
		}
		for _, item := range w.Items {
			seen[item.ID] = struct{}{}
		}
	}

	kept := make([]models.Item, 0, len(page.Items))
	for _, item := range page.Items {
		if _, dup := seen[item.ID]; dup {
			m.anomaly(item, "identifier already present in view")
			continue
		}
		seen[item.ID] = struct{}{}
		kept = append(kept, item)
	}
	if len(kept) == len(page.Items) {
		return page
	}
	return page.withItems(kept)
}

// dropOutOfBounds removes items whose sent time lies outside the page's own
// bounds.
func (m *Manager) dropOutOfBounds(page *PageWindow) *PageWindow {
	kept := make([]models.Item, 0, len(page.Items))
	for _, item := range page.Items {
		if item.SentAt.Before(page.MinSent) || item.SentAt.After(page.MaxSent) {
			m.anomaly(item, "item outside its page bounds")
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(page.Items) {
		return page
	}
	return page.withItems(kept)
}

// evict drops windows from the end opposite the one just extended.
func (m *Manager) evict(windows []*PageWindow, extendedHead bool) []*PageWindow {
	for len(windows) > m.maxWindows {
		if extendedHead {
			windows = windows[:len(windows)-1]
		} else {
			windows = windows[1:]
		}
	}
	return windows
}

func (m *Manager) anomaly(item models.Item, reason string) {
	log := logging.WithItem(m.log, item.ID)
	log.Warn().
		Time("sent_at", item.SentAt).
		Str("body", logging.Preview(item.Body, 0)).
		Msg(reason)
}

// MayExtend reports whether more items may exist past the edge of the view
// in direction. An empty view may always be extended.
func (m *Manager) MayExtend(direction Direction) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.windows) == 0 {
		return true
	}
	switch direction {
	case DirectionOlder:
		return m.windows[len(m.windows)-1].MayHaveOlder()
	case DirectionYounger, DirectionYoungest:
		return m.windows[0].MayHaveYounger()
	}
	return true
}

// Size returns the number of items in view.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := 0
	for _, w := range m.windows {
		size += w.Len()
	}
	return size
}

// ItemAt returns the item at a display position, youngest window first.
func (m *Manager) ItemAt(pos int) (models.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if pos < 0 {
		return models.Item{}, false
	}
	for _, w := range m.windows {
		if pos < w.Len() {
			return w.Items[pos].Clone(), true
		}
		pos -= w.Len()
	}
	return models.Item{}, false
}

// Items flattens the view in display order.
func (m *Manager) Items() []models.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []models.Item
	for _, w := range m.windows {
		items = append(items, cloneItems(w.Items)...)
	}
	return items
}

// Windows returns the pages in view, youngest first. Pages are immutable and
// may be shared.
func (m *Manager) Windows() []*PageWindow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*PageWindow(nil), m.windows...)
}

// OldestBound is the sent time of the oldest item in view.
func (m *Manager) OldestBound() (time.Time, bool) {
	sent, _, ok := m.OldestEdge()
	return sent, ok
}

// YoungestBound is the sent time of the youngest item in view.
func (m *Manager) YoungestBound() (time.Time, bool) {
	sent, _, ok := m.YoungestEdge()
	return sent, ok
}

// OldestEdge returns the sent time and id of the oldest item in view, in
// (sent time, id) order.
func (m *Manager) OldestEdge() (time.Time, int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w := nearestNonEmpty(m.windows, len(m.windows)-1, -1)
	if w == nil {
		return time.Time{}, 0, false
	}
	edge := w.Items[0]
	for _, item := range w.Items[1:] {
		if item.SentAt.Before(edge.SentAt) || (item.SentAt.Equal(edge.SentAt) && item.ID < edge.ID) {
			edge = item
		}
	}
	return edge.SentAt, edge.ID, true
}

// YoungestEdge returns the sent time and id of the youngest item in view.
func (m *Manager) YoungestEdge() (time.Time, int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w := nearestNonEmpty(m.windows, 0, 1)
	if w == nil {
		return time.Time{}, 0, false
	}
	edge := w.Items[0]
	for _, item := range w.Items[1:] {
		if item.SentAt.After(edge.SentAt) || (item.SentAt.Equal(edge.SentAt) && item.ID > edge.ID) {
			edge = item
		}
	}
	return edge.SentAt, edge.ID, true
}

// UpdateItem replaces an item in view with a fresher copy of it. The copy
// must keep its sent time; anything else would reorder the view.
func (m *Manager) UpdateItem(item models.Item) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for wi, w := range m.windows {
		for ii := range w.Items {
			if w.Items[ii].ID != item.ID {
				continue
			}
			if !w.Items[ii].SentAt.Equal(item.SentAt) {
				m.anomaly(item, "refreshed item changed its sent time")
				return false
			}
			items := cloneItems(w.Items)
			items[ii] = item.Clone()
			windows := append([]*PageWindow(nil), m.windows...)
			windows[wi] = w.withItems(items)
			m.windows = windows
			return true
		}
	}
	return false
}

// Reset empties the view.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = nil
}

func validatePage(page *PageWindow) error {
	if page == nil {
		return ErrNilPage
	}
	if !page.Query.Direction.Valid() {
		return ErrInvalidDirection
	}
	if len(page.Items) > 0 && (page.MinSent.IsZero() || page.MaxSent.IsZero() || page.MinSent.After(page.MaxSent)) {
		return ErrMissingBounds
	}
	return nil
}

// nearestNonEmpty walks windows from start by step and returns the first
// window holding items.
func nearestNonEmpty(windows []*PageWindow, start, step int) *PageWindow {
	for i := start; i >= 0 && i < len(windows); i += step {
		if !windows[i].IsEmpty() {
			return windows[i]
		}
	}
	return nil
}

func pastBoundary(sent, boundary time.Time, pageIsOlder bool) bool {
	if pageIsOlder {
		return sent.After(boundary)
	}
	return sent.Before(boundary)
}

func neighborHasAt(neighbor *PageWindow, id int64, at time.Time) bool {
	for i := range neighbor.Items {
		if neighbor.Items[i].ID == id && neighbor.Items[i].SentAt.Equal(at) {
			return true
		}
	}
	return false
}
