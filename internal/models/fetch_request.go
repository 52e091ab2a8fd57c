package models

import (
	"time"
)

// FetchRequestStatus is the state of a remote fetch request.
type FetchRequestStatus string

// Fetch request states.
const (
	FetchRequestPending   FetchRequestStatus = "pending"
	FetchRequestCompleted FetchRequestStatus = "completed"
)

// FetchRequest asks the network layer for an item that is missing locally.
type FetchRequest struct {
	// ID is the unique identifier for the request.
	ID string `json:"id"`

	// ItemID is the item to fetch.
	ItemID int64 `json:"item_id"`

	// Status is pending until the item is saved locally.
	Status FetchRequestStatus `json:"status"`

	// RequestedAt is when the request was last made.
	RequestedAt time.Time `json:"requested_at"`

	// CompletedAt is when the item arrived (if it did).
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks if the request is valid.
func (r *FetchRequest) Validate() error {
	var errs ValidationErrors
	if r.ItemID <= 0 {
		errs.Add("item_id", ErrInvalidID)
	}
	if r.RequestedAt.IsZero() {
		errs.Add("requested_at", ErrMissingTime)
	}
	return errs.Err()
}
