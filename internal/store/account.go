package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
)

// AccountStore defines the interface for account data persistence.
type AccountStore interface {
	// Create saves a new account to the store.
	// It handles domain validation internally.
	// Returns ErrEmailExists if an account with the same email exists.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique ID.
	// Returns ErrAccountNotFound if the account does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// RecomputeHealth recomputes the account's cached retrievability as the
	// mean over all of the account's non-deleted cards with a non-NULL
	// value, directly from the card table (not as an average of deck
	// averages). NULL when no such card exists.
	// Returns ErrAccountNotFound if the account does not exist.
	RecomputeHealth(ctx context.Context, accountID uuid.UUID) error

	// UpdateLastHealthSync advances the account's lazy-sync watermark.
	// Returns ErrAccountNotFound if the account does not exist.
	UpdateLastHealthSync(ctx context.Context, accountID uuid.UUID, at time.Time) error

	// WithTx returns a new AccountStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AccountStore
}
