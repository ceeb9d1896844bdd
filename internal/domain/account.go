package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account-specific validation errors
var (
	// ErrAccountIDEmpty is returned when an account ID is empty or nil.
	ErrAccountIDEmpty = errors.New("account ID cannot be empty")

	// ErrAccountEmailEmpty is returned when an account's email is empty.
	ErrAccountEmailEmpty = errors.New("account email cannot be empty")

	// ErrAccountEmailInvalid is returned when an account's email is malformed.
	ErrAccountEmailInvalid = errors.New("invalid account email format")

	// ErrAccountTimezoneInvalid is returned when an account's timezone is not
	// a loadable IANA zone name.
	ErrAccountTimezoneInvalid = errors.New("invalid account timezone")
)

// Account represents a registered owner of decks and cards.
//
// Timezone is the IANA zone name used to anchor calendar-day computations
// (lazy-sync day boundaries, statistics windows) to the user's local
// calendar. Retrievability is the mean over all of the account's non-deleted
// cards with a value, computed directly from the card set rather than as an
// average of deck averages so that decks with few cards are not overweighted.
// LastHealthSyncAt is the watermark consulted by the lazy health-sync policy;
// it lives on the entity, not in process memory, so the policy survives
// restarts and horizontal scaling.
type Account struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Timezone         string    `json:"timezone"`
	Retrievability   *float64  `json:"retrievability"`
	LastHealthSyncAt time.Time `json:"last_health_sync_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewAccount creates a new Account with the given email and IANA timezone
// name. The health-sync watermark starts at creation time.
// Returns an error if validation fails.
func NewAccount(email, timezone string) (*Account, error) {
	now := time.Now().UTC()
	account := &Account{
		ID:               uuid.New(),
		Email:            email,
		Timezone:         timezone,
		LastHealthSyncAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	return account, nil
}

// Validate checks if the Account has valid data.
// Returns an error if any field fails validation.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return ErrAccountIDEmpty
	}

	if a.Email == "" {
		return ErrAccountEmailEmpty
	}

	if !validateEmailFormat(a.Email) {
		return ErrAccountEmailInvalid
	}

	if _, err := time.LoadLocation(a.Timezone); err != nil || a.Timezone == "" {
		return ErrAccountTimezoneInvalid
	}

	return nil
}

// Location resolves the account's timezone to a *time.Location.
// Returns ErrAccountTimezoneInvalid if the zone name cannot be loaded.
func (a *Account) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, ErrAccountTimezoneInvalid
	}
	return loc, nil
}

// validateEmailFormat performs basic validation of email format.
// Returns true if the email appears to be in a valid format.
// Intentionally simple; callers needing RFC 5322 strictness should validate
// upstream at the form layer.
func validateEmailFormat(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
