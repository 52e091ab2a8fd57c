// Package duplicates decides whether two items are copies of the same post.
package duplicates

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tOgg1/threadline/internal/models"
)

const (
	// DefaultMinBodyLength is the shortest cleaned body compared by text.
	DefaultMinBodyLength = 5
	// DefaultMaxTimeDelta is the widest creation-time gap compared by text.
	DefaultMaxTimeDelta = 24 * time.Hour
)

// Link is the relation of one item to another.
type Link int

const (
	// None means the items are unrelated.
	None Link = iota
	// Duplicates means this item subsumes the other and is kept.
	Duplicates
	// IsDuplicated means this item is subsumed by the other.
	IsDuplicated
)

func (l Link) String() string {
	switch l {
	case Duplicates:
		return "duplicates"
	case IsDuplicated:
		return "is_duplicated"
	default:
		return "none"
	}
}

// Invert returns the relation seen from the other item.
func (l Link) Invert() Link {
	switch l {
	case Duplicates:
		return IsDuplicated
	case IsDuplicated:
		return Duplicates
	default:
		return None
	}
}

// blockTags separate words once markup is stripped.
var blockTags = regexp.MustCompile(`(?i)<\s*/?\s*(br|p|div|li|ul|ol|blockquote|h[1-6])\b[^>]*>`)

// Classifier compares items. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	accounts      models.AccountResolver
	minBodyLength int
	maxTimeDelta  time.Duration
	policy        *bluemonday.Policy
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMinBodyLength sets the minimum cleaned body length for text comparison.
func WithMinBodyLength(n int) Option {
	return func(c *Classifier) {
		if n >= 0 {
			c.minBodyLength = n
		}
	}
}

// WithMaxTimeDelta sets how far apart two posts may be and still be compared
// by text.
func WithMaxTimeDelta(d time.Duration) Option {
	return func(c *Classifier) {
		if d >= 0 {
			c.maxTimeDelta = d
		}
	}
}

// New creates a classifier. accounts may be nil, in which case account
// tie-breaks fall back to account ids.
func New(accounts models.AccountResolver, opts ...Option) *Classifier {
	c := &Classifier{
		accounts:      accounts,
		minBodyLength: DefaultMinBodyLength,
		maxTimeDelta:  DefaultMaxTimeDelta,
		policy:        bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the relation of a to b. Classify(a, b) is always the
// inverse of Classify(b, a).
func (c *Classifier) Classify(a, b models.Item) Link {
	if a.IsEmpty() || b.IsEmpty() {
		return None
	}
	if a.ID == b.ID {
		return c.byFlags(a, b)
	}
	return c.byText(a, b)
}

// CleanBody strips markup, unescapes entities, lower-cases and collapses
// whitespace.
func (c *Classifier) CleanBody(body string) string {
	if body == "" {
		return ""
	}
	spaced := blockTags.ReplaceAllString(body, " ")
	stripped := html.UnescapeString(c.policy.Sanitize(spaced))
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

func (c *Classifier) byFlags(a, b models.Item) Link {
	switch {
	case a.Favorited != b.Favorited:
		return winner(a.Favorited)
	case a.FavoritingAction != b.FavoritingAction:
		return winner(!a.FavoritingAction)
	case a.Reblogged != b.Reblogged:
		return winner(a.Reblogged)
	case a.AccountID != b.AccountID:
		return c.byAccount(a.AccountID, b.AccountID)
	case len(a.Rebloggers) != len(b.Rebloggers):
		return winner(len(a.Rebloggers) > len(b.Rebloggers))
	}
	return None
}

func (c *Classifier) byAccount(a, b int64) Link {
	if c.accounts != nil {
		if preferred := c.accounts.PreferredAccount(); preferred != 0 {
			if a == preferred {
				return Duplicates
			}
			if b == preferred {
				return IsDuplicated
			}
		}
		nameA, nameB := c.accounts.AccountName(a), c.accounts.AccountName(b)
		if nameA != nameB {
			return winner(nameA < nameB)
		}
	}
	return winner(a < b)
}

func (c *Classifier) byText(a, b models.Item) Link {
	delta := a.CreatedAt.Sub(b.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > c.maxTimeDelta {
		return None
	}

	bodyA := c.CleanBody(a.Body)
	bodyB := c.CleanBody(b.Body)
	if utf8.RuneCountInString(bodyA) < c.minBodyLength || utf8.RuneCountInString(bodyB) < c.minBodyLength {
		return None
	}

	switch {
	case bodyA == bodyB:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return winner(a.CreatedAt.After(b.CreatedAt))
		}
		if link := c.byFlags(a, b); link != None {
			return link
		}
		return winner(a.ID > b.ID)
	case strings.Contains(bodyA, bodyB):
		return Duplicates
	case strings.Contains(bodyB, bodyA):
		return IsDuplicated
	}
	return None
}

func winner(first bool) Link {
	if first {
		return Duplicates
	}
	return IsDuplicated
}
