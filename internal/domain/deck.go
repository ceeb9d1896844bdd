package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Deck-specific validation errors
var (
	// ErrDeckIDEmpty is returned when a deck ID is empty or nil.
	ErrDeckIDEmpty = errors.New("deck ID cannot be empty")

	// ErrDeckAccountIDEmpty is returned when a deck's account ID is empty or nil.
	ErrDeckAccountIDEmpty = errors.New("deck account ID cannot be empty")

	// ErrDeckNameEmpty is returned when a deck's name is empty.
	ErrDeckNameEmpty = errors.New("deck name cannot be empty")
)

// Deck groups a set of cards owned by one account.
//
// Retrievability is the arithmetic mean of retrievability over the deck's
// non-deleted cards that carry a value; nil when no such card exists. It is
// a denormalized rollup written only by the health synchronizer.
type Deck struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	Name           string     `json:"name"`
	Retrievability *float64   `json:"retrievability"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at"` // soft delete marker
}

// NewDeck creates a new Deck with the given account ID and name.
// Returns an error if validation fails.
func NewDeck(accountID uuid.UUID, name string) (*Deck, error) {
	now := time.Now().UTC()
	deck := &Deck{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks if the Deck has valid data.
// Returns an error if any field fails validation.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrDeckIDEmpty
	}

	if d.AccountID == uuid.Nil {
		return ErrDeckAccountIDEmpty
	}

	if d.Name == "" {
		return ErrDeckNameEmpty
	}

	return nil
}

// Deleted reports whether the deck has been soft-deleted.
func (d *Deck) Deleted() bool {
	return d.DeletedAt != nil
}
