package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
)

// PostgresDeckStore implements the store.DeckStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeckStore creates a new PostgreSQL implementation of the DeckStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

// Ensure PostgresDeckStore implements store.DeckStore interface
var _ store.DeckStore = (*PostgresDeckStore)(nil)

const deckColumns = `id, account_id, name, retrievability, created_at, updated_at, deleted_at`

// Create implements store.DeckStore.Create
func (s *PostgresDeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		log.Warn("deck validation failed during create",
			slog.String("error", err.Error()),
			slog.String("deck_id", deck.ID.String()))
		return err
	}

	query := `
		INSERT INTO decks (id, account_id, name, retrievability, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		deck.ID,
		deck.AccountID,
		deck.Name,
		deck.Retrievability,
		deck.CreatedAt,
		deck.UpdatedAt,
		deck.DeletedAt,
	)
	if err != nil {
		log.Error("failed to create deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", deck.ID.String()))
		return MapError(err)
	}

	log.Debug("deck created", slog.String("deck_id", deck.ID.String()))
	return nil
}

// GetByID implements store.DeckStore.GetByID
// Returns store.ErrDeckNotFound if the deck does not exist.
func (s *PostgresDeckStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks WHERE id = $1`

	deck, err := scanDeck(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrDeckNotFound
		}
		return nil, MapError(err)
	}

	return deck, nil
}

// ListByAccount implements store.DeckStore.ListByAccount
// It returns the account's non-deleted decks ordered by creation time.
func (s *PostgresDeckStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Deck, error) {
	query := `SELECT ` + deckColumns + `
		FROM decks
		WHERE account_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var decks []*domain.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, MapError(err)
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return decks, nil
}

// SoftDelete implements store.DeckStore.SoftDelete
// Returns store.ErrDeckNotFound if the deck does not exist or is already deleted.
func (s *PostgresDeckStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE decks
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		log.Error("failed to soft-delete deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "deck"); err != nil {
		return err
	}

	log.Debug("deck soft-deleted", slog.String("deck_id", id.String()))
	return nil
}

// RecomputeHealth implements store.DeckStore.RecomputeHealth
// It rolls the deck's retrievability up as the mean over its non-deleted
// cards with a computed retrievability. A deck with no such cards gets NULL.
// A missing deck is a no-op so callers can fire-and-forget after card moves.
func (s *PostgresDeckStore) RecomputeHealth(ctx context.Context, deckID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE decks
		SET retrievability = (
			SELECT AVG(retrievability)
			FROM cards
			WHERE cards.deck_id = decks.id
			  AND cards.deleted_at IS NULL
			  AND cards.retrievability IS NOT NULL
		)
		WHERE id = $1 AND deleted_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, deckID); err != nil {
		log.Error("failed to recompute deck health",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()))
		return MapError(err)
	}

	log.Debug("deck health recomputed", slog.String("deck_id", deckID.String()))
	return nil
}

// WithTx implements store.DeckStore.WithTx
// It returns a new DeckStore instance that uses the provided transaction.
func (s *PostgresDeckStore) WithTx(tx *sql.Tx) store.DeckStore {
	return &PostgresDeckStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanDeck(row rowScanner) (*domain.Deck, error) {
	var (
		deck           domain.Deck
		retrievability sql.NullFloat64
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&deck.ID,
		&deck.AccountID,
		&deck.Name,
		&retrievability,
		&deck.CreatedAt,
		&deck.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if retrievability.Valid {
		deck.Retrievability = &retrievability.Float64
	}
	if deletedAt.Valid {
		deck.DeletedAt = &deletedAt.Time
	}

	return &deck, nil
}
