package models

import (
	"errors"
	"testing"
	"time"
)

func TestValidationErrorsIs(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Add("id", ErrInvalidID)

	err := validation.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected errors.Is to match ErrInvalidID, got %v", err)
	}
	if errors.Is(err, ErrMissingTime) {
		t.Fatal("did not expect ErrMissingTime to match")
	}
}

func TestValidationErrorsCollectsFields(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Add("id", ErrInvalidID)
	validation.Add("ignored", nil)
	validation.Add("sent_at", ErrMissingTime)

	list, ok := validation.Err().(*ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors type, got %T", validation.Err())
	}
	if len(list.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(list.Errors))
	}
	want := "id: identifier must be positive; sent_at: timestamp is required"
	if got := list.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestValidationErrorsEmpty(t *testing.T) {
	var validation ValidationErrors
	if err := validation.Err(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestFetchRequestValidate(t *testing.T) {
	req := FetchRequest{ItemID: 3, RequestedAt: time.Now()}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := (&FetchRequest{}).Validate()
	if !errors.Is(err, ErrInvalidID) || !errors.Is(err, ErrMissingTime) {
		t.Fatalf("expected id and time errors, got %v", err)
	}
}
