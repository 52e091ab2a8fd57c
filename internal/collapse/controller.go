// Package collapse folds consecutive duplicate items into a single visible
// entry and unfolds them on demand.
package collapse

import (
	"github.com/tOgg1/threadline/internal/duplicates"
	"github.com/tOgg1/threadline/internal/models"
)

// Recorder is anything that wraps an item: plain items and conversation
// nodes both qualify.
type Recorder interface {
	Record() models.Item
}

// Classifier decides how two items relate.
type Classifier interface {
	Classify(a, b models.Item) duplicates.Link
}

// Entry is one visible value plus the duplicates folded into it.
type Entry[T Recorder] struct {
	Value  T
	Hidden []T
}

// ID returns the identifier of the visible value.
func (e Entry[T]) ID() int64 {
	return e.Value.Record().ID
}

// Collapsed reports whether the entry hides anything.
func (e Entry[T]) Collapsed() bool {
	return len(e.Hidden) > 0
}

// Controller owns a display sequence. It is not safe for concurrent use.
type Controller[T Recorder] struct {
	classifier Classifier
	entries    []Entry[T]
}

// New creates a controller over values in display order, nothing collapsed.
func New[T Recorder](classifier Classifier, values []T) *Controller[T] {
	entries := make([]Entry[T], 0, len(values))
	for _, v := range values {
		entries = append(entries, Entry[T]{Value: v})
	}
	return &Controller[T]{classifier: classifier, entries: entries}
}

// CollapseAll folds every run of duplicates. Calling it again changes
// nothing.
func (c *Controller[T]) CollapseAll() {
	c.entries = c.collapse(c.entries)
}

// ExpandOne unfolds the visible entry with id, placing its hidden values
// right after it. id 0 unfolds everything. Unknown ids are ignored.
func (c *Controller[T]) ExpandOne(id int64) bool {
	expanded := false
	out := make([]Entry[T], 0, len(c.entries))
	for _, e := range c.entries {
		if (id == 0 || e.ID() == id) && e.Collapsed() {
			out = append(out, Entry[T]{Value: e.Value})
			for _, hidden := range e.Hidden {
				out = append(out, Entry[T]{Value: hidden})
			}
			expanded = true
			continue
		}
		out = append(out, e)
	}
	c.entries = out
	return expanded
}

// CollapseOne folds only the contiguous run of related entries around id.
func (c *Controller[T]) CollapseOne(id int64) bool {
	at := c.index(id)
	if at < 0 {
		return false
	}
	lo, hi := at, at
	for lo > 0 && c.related(c.entries[lo-1], c.entries[lo]) {
		lo--
	}
	for hi < len(c.entries)-1 && c.related(c.entries[hi], c.entries[hi+1]) {
		hi++
	}
	if lo == hi {
		return false
	}

	cluster := c.collapse(c.entries[lo : hi+1])
	out := make([]Entry[T], 0, len(c.entries)-(hi-lo+1)+len(cluster))
	out = append(out, c.entries[:lo]...)
	out = append(out, cluster...)
	out = append(out, c.entries[hi+1:]...)
	c.entries = out
	return true
}

// Entries returns the visible entries in display order.
func (c *Controller[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry[T]{Value: e.Value, Hidden: append([]T(nil), e.Hidden...)}
	}
	return out
}

// Visible returns only the visible values.
func (c *Controller[T]) Visible() []T {
	out := make([]T, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Value
	}
	return out
}

// HiddenCount returns how many values are folded into the entry with id.
func (c *Controller[T]) HiddenCount(id int64) int {
	if at := c.index(id); at >= 0 {
		return len(c.entries[at].Hidden)
	}
	return 0
}

// Len returns the number of visible entries.
func (c *Controller[T]) Len() int {
	return len(c.entries)
}

func (c *Controller[T]) index(id int64) int {
	if id == 0 {
		return -1
	}
	for i, e := range c.entries {
		if e.ID() == id {
			return i
		}
	}
	return -1
}

func (c *Controller[T]) related(a, b Entry[T]) bool {
	return c.classifier.Classify(a.Value.Record(), b.Value.Record()) != duplicates.None
}

// collapse repeats the parent walk until a pass folds nothing. The input is
// not modified.
func (c *Controller[T]) collapse(entries []Entry[T]) []Entry[T] {
	for {
		next, changed := c.pass(entries)
		entries = next
		if !changed {
			return entries
		}
	}
}

// pass walks once, classifying each entry against the current parent.
func (c *Controller[T]) pass(entries []Entry[T]) ([]Entry[T], bool) {
	out := make([]Entry[T], 0, len(entries))
	changed := false
	for _, e := range entries {
		if len(out) == 0 {
			out = append(out, e)
			continue
		}
		parent := out[len(out)-1]
		switch c.classifier.Classify(parent.Value.Record(), e.Value.Record()) {
		case duplicates.Duplicates:
			out[len(out)-1] = fold(parent, e)
			changed = true
		case duplicates.IsDuplicated:
			out[len(out)-1] = fold(e, parent)
			changed = true
		default:
			out = append(out, e)
		}
	}
	return out, changed
}

// fold hides child and everything child hid inside keep.
func fold[T Recorder](keep, child Entry[T]) Entry[T] {
	hidden := make([]T, 0, len(keep.Hidden)+1+len(child.Hidden))
	hidden = append(hidden, keep.Hidden...)
	hidden = append(hidden, child.Value)
	hidden = append(hidden, child.Hidden...)
	return Entry[T]{Value: keep.Value, Hidden: hidden}
}
