// Package filter decides which items are hidden from timelines before they
// are paged.
package filter

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/tOgg1/threadline/internal/models"
)

// globMeta marks a keyword as a pattern rather than a bare word.
const globMeta = "*?[{"

// Config lists the user's hiding rules.
type Config struct {
	HiddenKeywords          []string
	HideRepliesNotFromKnown bool
}

// Cleaner normalizes a body before keywords are matched.
type Cleaner interface {
	CleanBody(body string) string
}

type keyword struct {
	raw     string
	pattern glob.Glob
}

// Filter is immutable once built and safe for concurrent use.
type Filter struct {
	keywords           []keyword
	hideUnknownReplies bool
	accounts           models.AccountResolver
	cleaner            Cleaner
}

// New compiles cfg. accounts may be nil, which disables the known-author
// rule. cleaner may be nil, in which case bodies are only lower-cased.
func New(cfg Config, accounts models.AccountResolver, cleaner Cleaner) (*Filter, error) {
	f := &Filter{
		hideUnknownReplies: cfg.HideRepliesNotFromKnown,
		accounts:           accounts,
		cleaner:            cleaner,
	}
	for _, raw := range cfg.HiddenKeywords {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		kw := keyword{raw: raw}
		if strings.ContainsAny(raw, globMeta) {
			pattern, err := glob.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("hidden keyword %q: %w", raw, err)
			}
			kw.pattern = pattern
		}
		f.keywords = append(f.keywords, kw)
	}
	return f, nil
}

// Keep reports whether item should be shown. It has the shape of a page
// predicate.
func (f *Filter) Keep(item models.Item) bool {
	_, hidden := f.Reason(item)
	return !hidden
}

// Reason returns why item is hidden, if it is.
func (f *Filter) Reason(item models.Item) (string, bool) {
	if f == nil {
		return "", false
	}
	if f.hideUnknownReplies && f.accounts != nil && item.IsReply() && !f.accounts.IsKnownActor(item.ActorID) {
		return "reply from unknown author", true
	}
	if len(f.keywords) == 0 {
		return "", false
	}

	body := f.clean(item.Body)
	words := strings.Fields(body)
	for _, kw := range f.keywords {
		if kw.pattern == nil {
			if strings.Contains(body, kw.raw) {
				return "keyword " + kw.raw, true
			}
			continue
		}
		if kw.pattern.Match(body) {
			return "keyword " + kw.raw, true
		}
		for _, word := range words {
			if kw.pattern.Match(word) {
				return "keyword " + kw.raw, true
			}
		}
	}
	return "", false
}

// Empty reports whether the filter hides nothing.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.keywords) == 0 && !(f.hideUnknownReplies && f.accounts != nil))
}

func (f *Filter) clean(body string) string {
	if f.cleaner != nil {
		return f.cleaner.CleanBody(body)
	}
	return strings.ToLower(body)
}
