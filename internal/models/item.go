// Package models defines the records shared by the timeline and conversation
// engines.
package models

import (
	"maps"
	"time"
)

// ItemStatus is the lifecycle state of an item.
type ItemStatus string

// Item lifecycle states. Deleted items are never shown.
const (
	StatusDraft   ItemStatus = "draft"
	StatusLoading ItemStatus = "loading"
	StatusLoaded  ItemStatus = "loaded"
	StatusDeleted ItemStatus = "deleted"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLoading, StatusLoaded, StatusDeleted:
		return true
	}
	return false
}

// Item is a single post. Items are value objects: once Status is loaded the
// body and flags are fixed, and only local drafts may be edited.
type Item struct {
	ID          int64      `json:"id" yaml:"id"`
	ActorID     int64      `json:"actor_id" yaml:"actor_id"`
	AccountID   int64      `json:"account_id" yaml:"account_id"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	SentAt      time.Time  `json:"sent_at" yaml:"sent_at"`
	ReplyToID   int64      `json:"reply_to_id,omitempty" yaml:"reply_to_id,omitempty"`
	RecipientID int64      `json:"recipient_id,omitempty" yaml:"recipient_id,omitempty"`
	Body        string     `json:"body" yaml:"body"`
	Status      ItemStatus `json:"status" yaml:"status"`

	Favorited bool `json:"favorited,omitempty" yaml:"favorited,omitempty"`
	Reblogged bool `json:"reblogged,omitempty" yaml:"reblogged,omitempty"`
	// FavoritingAction marks a placeholder produced by a favoriting action
	// rather than the post itself.
	FavoritingAction bool `json:"favoriting_action,omitempty" yaml:"favoriting_action,omitempty"`

	// Rebloggers maps reblogging actor id to display name.
	Rebloggers map[int64]string `json:"rebloggers,omitempty" yaml:"rebloggers,omitempty"`
}

// Record returns the item itself, so plain items can be collapsed like
// conversation nodes.
func (i Item) Record() Item {
	return i
}

// IsEmpty reports whether the item carries no identity.
func (i Item) IsEmpty() bool {
	return i.ID == 0
}

// IsReply reports whether the item answers another item.
func (i Item) IsReply() bool {
	return i.ReplyToID != 0
}

// IsPublic reports whether the item has no direct recipient.
func (i Item) IsPublic() bool {
	return i.RecipientID == 0
}

// Editable reports whether body and flags may still change.
func (i Item) Editable() bool {
	return i.Status != StatusLoaded
}

// Clone returns a copy that shares no mutable state with i.
func (i Item) Clone() Item {
	cloned := i
	if i.Rebloggers != nil {
		cloned.Rebloggers = maps.Clone(i.Rebloggers)
	}
	return cloned
}

// SetBody replaces the body of a draft.
func (i *Item) SetBody(body string) error {
	if !i.Editable() {
		return ErrImmutableItem
	}
	i.Body = body
	return nil
}

// SetFavorited updates the favorited flag of a draft.
func (i *Item) SetFavorited(favorited bool) error {
	if !i.Editable() {
		return ErrImmutableItem
	}
	i.Favorited = favorited
	return nil
}

// SetReblogged updates the reblogged flag of a draft.
func (i *Item) SetReblogged(reblogged bool) error {
	if !i.Editable() {
		return ErrImmutableItem
	}
	i.Reblogged = reblogged
	return nil
}

// AddReblogger records an actor that reblogged a draft.
func (i *Item) AddReblogger(actorID int64, name string) error {
	if !i.Editable() {
		return ErrImmutableItem
	}
	if i.Rebloggers == nil {
		i.Rebloggers = make(map[int64]string)
	}
	i.Rebloggers[actorID] = name
	return nil
}

// Validate checks the item's invariants.
func (i Item) Validate() error {
	var errs ValidationErrors
	if i.ID <= 0 {
		errs.Add("id", ErrInvalidID)
	}
	if !i.Status.Valid() {
		errs.Add("status", ErrInvalidStatus)
	}
	if i.CreatedAt.IsZero() {
		errs.Add("created_at", ErrMissingTime)
	}
	if i.SentAt.IsZero() {
		errs.Add("sent_at", ErrMissingTime)
	}
	if i.ReplyToID != 0 && i.ReplyToID == i.ID {
		errs.Add("reply_to_id", ErrSelfReply)
	}
	return errs.Err()
}
