package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewAccount(t *testing.T) {
	t.Parallel()

	account, err := NewAccount("user@example.com", "America/New_York")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if account.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if account.Retrievability != nil {
		t.Error("Expected new account to have nil retrievability")
	}

	if account.LastHealthSyncAt.IsZero() {
		t.Error("Expected health-sync watermark to start at creation time")
	}

	loc, err := account.Location()
	if err != nil {
		t.Fatalf("Expected timezone to resolve, got %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("Expected location America/New_York, got %s", loc)
	}
}

func TestNewAccountValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		email    string
		timezone string
		wantErr  error
	}{
		{"empty email", "", "UTC", ErrAccountEmailEmpty},
		{"missing at", "userexample.com", "UTC", ErrAccountEmailInvalid},
		{"missing domain dot", "user@example", "UTC", ErrAccountEmailInvalid},
		{"empty timezone", "user@example.com", "", ErrAccountTimezoneInvalid},
		{"bogus timezone", "user@example.com", "Mars/Olympus_Mons", ErrAccountTimezoneInvalid},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewAccount(tc.email, tc.timezone)
			if err != tc.wantErr {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReviewLogValidate(t *testing.T) {
	t.Parallel()

	log := &ReviewLog{
		ID:        uuid.New(),
		CardID:    uuid.New(),
		AccountID: uuid.New(),
		Rating:    RatingGood,
		State:     CardStateReview,
	}

	if err := log.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	log.Rating = Rating("perfect")
	if err := log.Validate(); err != ErrInvalidRating {
		t.Errorf("Expected error %v, got %v", ErrInvalidRating, err)
	}

	log.Rating = RatingAgain
	log.State = CardState("archived")
	if err := log.Validate(); err != ErrCardStateInvalid {
		t.Errorf("Expected error %v, got %v", ErrCardStateInvalid, err)
	}
}
