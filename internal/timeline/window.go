// Package timeline keeps a bounded, deduplicated view over a timeline that is
// loaded one page at a time.
package timeline

import (
	"time"

	"github.com/tOgg1/threadline/internal/models"
)

// Direction says which part of the timeline a page was fetched for.
type Direction string

const (
	// DirectionOlder extends the view past its oldest item.
	DirectionOlder Direction = "older"
	// DirectionYounger extends the view past its youngest item.
	DirectionYounger Direction = "younger"
	// DirectionCurrent reloads the view around its current position.
	DirectionCurrent Direction = "current"
	// DirectionTop jumps to the top of the timeline.
	DirectionTop Direction = "top"
	// DirectionYoungest refreshes the youngest page, keeping the rest.
	DirectionYoungest Direction = "youngest"
	// DirectionPage reloads one existing page by its bounds.
	DirectionPage Direction = "page"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOlder, DirectionYounger, DirectionCurrent, DirectionTop, DirectionYoungest, DirectionPage:
		return true
	}
	return false
}

// ParseDirection converts a CLI/config string to a Direction.
func ParseDirection(value string) (Direction, bool) {
	d := Direction(value)
	return d, d.Valid()
}

// Predicate decides whether an item is shown at all.
type Predicate func(models.Item) bool

// PageQuery describes one fetch.
type PageQuery struct {
	Direction Direction
	// Bound is the exclusive edge for older/younger, the inclusive upper
	// edge for current (zero = youngest) and the lower edge for page.
	Bound time.Time
	// BoundID is the identifier of the edge item at Bound. When set, older
	// and younger pages continue in (sent time, id) order, so items sharing
	// the edge's sent time are not skipped.
	BoundID int64
	// MaxBound is the upper edge for page reloads.
	MaxBound time.Time
	Limit    int
	// Filter is applied by the fetcher before the limit is filled.
	Filter Predicate
}

// PageWindow is one fetched batch. It is immutable once built.
type PageWindow struct {
	Query PageQuery
	// Items keep fetch order.
	Items []models.Item
	// MinSent and MaxSent are the observed sent-time bounds of Items.
	MinSent time.Time
	MaxSent time.Time
	// YoungestReached is set when nothing newer than this page exists.
	YoungestReached bool
	// OldestReached is set when nothing older than this page exists.
	OldestReached bool
}

// NewPageWindow builds a window and computes its bounds from items. An empty
// older/younger result closes that edge, and top/youngest pages are youngest
// by definition.
func NewPageWindow(query PageQuery, items []models.Item, youngestReached, oldestReached bool) *PageWindow {
	switch query.Direction {
	case DirectionTop, DirectionYoungest:
		youngestReached = true
	case DirectionOlder:
		oldestReached = oldestReached || len(items) == 0
	case DirectionYounger:
		youngestReached = youngestReached || len(items) == 0
	}
	page := &PageWindow{
		Query:           query,
		Items:           cloneItems(items),
		YoungestReached: youngestReached,
		OldestReached:   oldestReached,
	}
	page.MinSent, page.MaxSent = sentBounds(page.Items)
	return page
}

// Len returns the number of items.
func (p *PageWindow) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// IsEmpty reports whether the page holds no items.
func (p *PageWindow) IsEmpty() bool {
	return p.Len() == 0
}

// MayHaveYounger reports whether newer items may exist beyond this page.
func (p *PageWindow) MayHaveYounger() bool {
	return p != nil && !p.YoungestReached
}

// MayHaveOlder reports whether older items may exist beyond this page.
func (p *PageWindow) MayHaveOlder() bool {
	return p != nil && !p.OldestReached
}

// Contains reports whether the page holds an item with the id.
func (p *PageWindow) Contains(id int64) bool {
	if p == nil {
		return false
	}
	for i := range p.Items {
		if p.Items[i].ID == id {
			return true
		}
	}
	return false
}

// withItems returns a copy of the page holding items, with bounds
// recomputed and reached markers kept.
func (p *PageWindow) withItems(items []models.Item) *PageWindow {
	next := &PageWindow{
		Query:           p.Query,
		Items:           items,
		YoungestReached: p.YoungestReached,
		OldestReached:   p.OldestReached,
	}
	next.MinSent, next.MaxSent = sentBounds(items)
	return next
}

func sentBounds(items []models.Item) (time.Time, time.Time) {
	var minSent, maxSent time.Time
	for i := range items {
		sent := items[i].SentAt
		if minSent.IsZero() || sent.Before(minSent) {
			minSent = sent
		}
		if maxSent.IsZero() || sent.After(maxSent) {
			maxSent = sent
		}
	}
	return minSent, maxSent
}

func cloneItems(items []models.Item) []models.Item {
	if len(items) == 0 {
		return nil
	}
	cloned := make([]models.Item, len(items))
	for i := range items {
		cloned[i] = items[i].Clone()
	}
	return cloned
}
