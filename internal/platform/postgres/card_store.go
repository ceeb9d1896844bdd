package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/domain/srs"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// cardColumns is the canonical column list shared by the card read queries.
const cardColumns = `id, account_id, deck_id, front, back, state,
	stability, difficulty, elapsed_days, scheduled_days, reps, lapses,
	due, last_reviewed_at, retrievability, created_at, updated_at, deleted_at`

// Create implements store.CardStore.Create
// It saves a new card to the database, handling domain validation.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	query := `
		INSERT INTO cards (id, account_id, deck_id, front, back, state,
			stability, difficulty, elapsed_days, scheduled_days, reps, lapses,
			due, last_reviewed_at, retrievability, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		card.ID,
		card.AccountID,
		card.DeckID,
		card.Front,
		card.Back,
		card.State,
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		card.Due,
		card.LastReviewedAt,
		card.Retrievability,
		card.CreatedAt,
		card.UpdatedAt,
		card.DeletedAt,
	)
	if err != nil {
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))
	return nil
}

// GetByID implements store.CardStore.GetByID
// It retrieves a card by its unique ID, including soft-deleted cards.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrCardNotFound
		}
		return nil, MapError(err)
	}

	return card, nil
}

// Update implements store.CardStore.Update
// It persists the card's current field values, including memory state and
// deck membership. Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during update",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	query := `
		UPDATE cards
		SET deck_id = $2, front = $3, back = $4, state = $5,
			stability = $6, difficulty = $7, elapsed_days = $8,
			scheduled_days = $9, reps = $10, lapses = $11, due = $12,
			last_reviewed_at = $13, retrievability = $14, updated_at = $15
		WHERE id = $1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		card.ID,
		card.DeckID,
		card.Front,
		card.Back,
		card.State,
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		card.Due,
		card.LastReviewedAt,
		card.Retrievability,
		card.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		return err
	}

	log.Debug("card updated", slog.String("card_id", card.ID.String()))
	return nil
}

// SoftDelete implements store.CardStore.SoftDelete
// It marks the card deleted at the given instant; the row and its review
// logs are retained. Returns store.ErrCardNotFound if the card does not
// exist or is already deleted.
func (s *PostgresCardStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE cards
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		log.Error("failed to soft-delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		return err
	}

	log.Debug("card soft-deleted", slog.String("card_id", id.String()))
	return nil
}

// SetRetrievability implements store.CardStore.SetRetrievability
// It overwrites the card's cached retrievability; the review path uses it to
// pin a just-reviewed card at full recall.
func (s *PostgresCardStore) SetRetrievability(ctx context.Context, id uuid.UUID, value float64) error {
	query := `UPDATE cards SET retrievability = $2 WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, value)
	if err != nil {
		return MapError(err)
	}

	return CheckRowsAffected(result, "card")
}

// RecomputeHealth implements store.CardStore.RecomputeHealth
// It recomputes the cached retrievability of every non-deleted card of the
// account with defined memory state in one set-based UPDATE, applying
// the forgetting curve R = (1 + FACTOR*t/S)^DECAY inside the database so the
// pass is a single atomic statement regardless of card count. Decay is
// anchored at the last review, or at the card's creation instant for memory
// state seeded at import time. Cards with no stability keep a NULL
// retrievability.
func (s *PostgresCardStore) RecomputeHealth(ctx context.Context, accountID uuid.UUID, anchor time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE cards
		SET retrievability = LEAST(1.0, GREATEST(0.0, POWER(
				1 + $2::double precision *
					(GREATEST(EXTRACT(EPOCH FROM ($4::timestamptz - COALESCE(last_reviewed_at, created_at))), 0) / 86400.0) /
					stability,
				$3::double precision))),
			updated_at = $4
		WHERE account_id = $1
		  AND deleted_at IS NULL
		  AND stability IS NOT NULL
		  AND stability > 0
	`
	result, err := s.db.ExecContext(ctx, query, accountID, srs.Factor, srs.Decay, anchor)
	if err != nil {
		log.Error("failed to recompute card health",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return MapError(err)
	}

	// Zero affected rows is fine: the account may not exist or may have no
	// cards with memory state.
	if rows, err := result.RowsAffected(); err == nil {
		log.Debug("card health recomputed",
			slog.String("account_id", accountID.String()),
			slog.Int64("cards", rows),
			slog.Time("anchor", anchor))
	}
	return nil
}

// ListActive implements store.CardStore.ListActive
// It returns the account's non-deleted cards, optionally restricted to one deck.
func (s *PostgresCardStore) ListActive(
	ctx context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
) ([]*domain.Card, error) {
	query := `SELECT ` + cardColumns + `
		FROM cards
		WHERE account_id = $1 AND deleted_at IS NULL
		  AND ($2::uuid IS NULL OR deck_id = $2)
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, deckID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return cards, nil
}

// DueCountsByDay implements store.CardStore.DueCountsByDay
// Days are grouped in the given IANA timezone so that bucket boundaries
// follow the user's local calendar, not UTC.
func (s *PostgresCardStore) DueCountsByDay(
	ctx context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
	timezone string,
) ([]store.DailyCount, error) {
	query := `
		SELECT to_char(due AT TIME ZONE $2, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM cards
		WHERE account_id = $1 AND deleted_at IS NULL
		  AND ($3::uuid IS NULL OR deck_id = $3)
		GROUP BY day
		ORDER BY day
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, timezone, deckID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return scanDailyCounts(rows)
}

// WithTx implements store.CardStore.WithTx
// It returns a new CardStore instance that uses the provided transaction.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCard maps one card row onto a domain.Card, converting SQL NULLs into
// nil pointer fields.
func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card           domain.Card
		stability      sql.NullFloat64
		difficulty     sql.NullFloat64
		lastReviewedAt sql.NullTime
		retrievability sql.NullFloat64
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&card.ID,
		&card.AccountID,
		&card.DeckID,
		&card.Front,
		&card.Back,
		&card.State,
		&stability,
		&difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&card.Due,
		&lastReviewedAt,
		&retrievability,
		&card.CreatedAt,
		&card.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if stability.Valid {
		card.Stability = &stability.Float64
	}
	if difficulty.Valid {
		card.Difficulty = &difficulty.Float64
	}
	if lastReviewedAt.Valid {
		card.LastReviewedAt = &lastReviewedAt.Time
	}
	if retrievability.Valid {
		card.Retrievability = &retrievability.Float64
	}
	if deletedAt.Valid {
		card.DeletedAt = &deletedAt.Time
	}

	return &card, nil
}

// scanDailyCounts drains a (day, count) result set.
func scanDailyCounts(rows *sql.Rows) ([]store.DailyCount, error) {
	var counts []store.DailyCount
	for rows.Next() {
		var dc store.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, MapError(err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return counts, nil
}
