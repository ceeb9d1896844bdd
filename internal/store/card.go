package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
)

// CardStore defines the interface for card data persistence.
// All read and aggregate operations exclude soft-deleted cards unless
// stated otherwise; the deleted_at filter is part of each query's contract,
// not an afterthought.
type CardStore interface {
	// Create saves a new card to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Card if data is invalid.
	Create(ctx context.Context, card *domain.Card) error

	// GetByID retrieves a card by its unique ID, including soft-deleted
	// cards (callers that must exclude them check Card.Deleted).
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// Update persists the card's current field values, including its memory
	// state and deck membership.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// SoftDelete marks the card deleted at the given instant. The row is
	// retained; review logs referencing it stay intact.
	// Returns ErrCardNotFound if the card does not exist or is already deleted.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	// SetRetrievability overwrites the card's cached retrievability.
	// Used by the review path to pin a just-reviewed card at full recall.
	// Returns ErrCardNotFound if the card does not exist.
	SetRetrievability(ctx context.Context, id uuid.UUID, value float64) error

	// RecomputeHealth recomputes the cached retrievability of every
	// non-deleted card of the account with defined memory state from the
	// forgetting curve, using anchor as the reference instant. Decay is
	// anchored at the last review, or at the creation instant for state
	// seeded without review history. Cards with no stability are left
	// untouched (retrievability stays NULL). The recompute is one
	// set-based write: a single pass over the account's cards, evaluated
	// inside the database. Idempotent for a fixed anchor.
	RecomputeHealth(ctx context.Context, accountID uuid.UUID, anchor time.Time) error

	// ListActive returns the account's non-deleted cards, optionally
	// restricted to one deck.
	ListActive(ctx context.Context, accountID uuid.UUID, deckID *uuid.UUID) ([]*domain.Card, error)

	// DueCountsByDay returns, for the account's non-deleted cards
	// (optionally restricted to one deck), the number of cards due per
	// calendar day. Days are canonical YYYY-MM-DD strings computed in the
	// given IANA timezone.
	DueCountsByDay(ctx context.Context, accountID uuid.UUID, deckID *uuid.UUID, timezone string) ([]DailyCount, error)

	// WithTx returns a new CardStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) CardStore
}
