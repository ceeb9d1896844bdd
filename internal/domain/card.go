package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardState represents the learning stage of a card.
type CardState string

// Possible card states, ordered from least to most established.
const (
	CardStateNew        CardState = "new"
	CardStateLearning   CardState = "learning"
	CardStateReview     CardState = "review"
	CardStateRelearning CardState = "relearning"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardAccountIDEmpty is returned when a card's account ID is empty or nil.
	ErrCardAccountIDEmpty = errors.New("card account ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardFrontEmpty is returned when a card's front side is empty.
	ErrCardFrontEmpty = errors.New("card front cannot be empty")

	// ErrCardStateInvalid is returned when a card's state is not a known CardState.
	ErrCardStateInvalid = errors.New("invalid card state")

	// ErrCardStabilityInvalid is returned when a card carries a non-positive stability.
	ErrCardStabilityInvalid = errors.New("card stability must be greater than 0")

	// ErrCardRetrievabilityRange is returned when a card's retrievability
	// falls outside the [0, 1] interval.
	ErrCardRetrievabilityRange = errors.New("card retrievability must be between 0 and 1")
)

// Card represents a flashcard together with its spaced-repetition memory
// state. The memory fields (Stability, Difficulty, Retrievability,
// LastReviewedAt) are nil until the card has been reviewed at least once:
// the forgetting-curve model has nothing meaningful to say about a card
// with no review history.
//
// Retrievability is a denormalized cache of the decay function's output and
// is maintained exclusively by the health synchronizer; it is never a
// source of truth.
type Card struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	DeckID         uuid.UUID  `json:"deck_id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	State          CardState  `json:"state"`
	Stability      *float64   `json:"stability"`  // nil before first review
	Difficulty     *float64   `json:"difficulty"` // nil before first review
	ElapsedDays    int        `json:"elapsed_days"`
	ScheduledDays  int        `json:"scheduled_days"`
	Reps           int        `json:"reps"`
	Lapses         int        `json:"lapses"`
	Due            time.Time  `json:"due"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"` // nil before first review
	Retrievability *float64   `json:"retrievability"`   // nil before first review
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at"` // soft delete marker
}

// NewCard creates a new Card in the New state for the given account and deck.
// The card is due immediately and carries no memory state yet.
// Returns an error if validation fails.
func NewCard(accountID, deckID uuid.UUID, front, back string) (*Card, error) {
	now := time.Now().UTC()
	card := &Card{
		ID:        uuid.New(),
		AccountID: accountID,
		DeckID:    deckID,
		Front:     front,
		Back:      back,
		State:     CardStateNew,
		Due:       now, // available for review immediately
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.AccountID == uuid.Nil {
		return ErrCardAccountIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	if c.Front == "" {
		return ErrCardFrontEmpty
	}

	if !IsValidCardState(c.State) {
		return ErrCardStateInvalid
	}

	if c.Stability != nil && *c.Stability <= 0 {
		return ErrCardStabilityInvalid
	}

	if c.Retrievability != nil && (*c.Retrievability < 0 || *c.Retrievability > 1) {
		return ErrCardRetrievabilityRange
	}

	return nil
}

// Reviewed reports whether the card has been reviewed at least once and
// therefore carries a defined memory state for the decay function.
func (c *Card) Reviewed() bool {
	return c.LastReviewedAt != nil && c.Stability != nil
}

// Deleted reports whether the card has been soft-deleted.
func (c *Card) Deleted() bool {
	return c.DeletedAt != nil
}

// IsValidCardState checks if the given state is a known CardState.
func IsValidCardState(state CardState) bool {
	switch state {
	case CardStateNew, CardStateLearning, CardStateReview, CardStateRelearning:
		return true
	default:
		return false
	}
}
