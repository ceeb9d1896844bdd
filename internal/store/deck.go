package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
)

// DeckStore defines the interface for deck data persistence.
type DeckStore interface {
	// Create saves a new deck to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, deck *domain.Deck) error

	// GetByID retrieves a deck by its unique ID.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// ListByAccount returns the account's non-deleted decks.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Deck, error)

	// SoftDelete marks the deck deleted at the given instant.
	// Returns ErrDeckNotFound if the deck does not exist or is already deleted.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	// RecomputeHealth recomputes the deck's cached retrievability as the
	// mean over its non-deleted cards with a non-NULL value, or NULL when
	// no such card exists. A nonexistent deck ID is a no-op.
	RecomputeHealth(ctx context.Context, deckID uuid.UUID) error

	// WithTx returns a new DeckStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) DeckStore
}
