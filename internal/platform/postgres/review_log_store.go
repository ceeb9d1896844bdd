package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
)

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend. Review logs are
// append-only: rows are never updated or deleted, and they survive the
// soft deletion of their card.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the ReviewLogStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// Append implements store.ReviewLogStore.Append
func (s *PostgresReviewLogStore) Append(ctx context.Context, log *domain.ReviewLog) error {
	l := logger.FromContextOrDefault(ctx, s.logger)

	if err := log.Validate(); err != nil {
		l.Warn("review log validation failed",
			slog.String("error", err.Error()),
			slog.String("card_id", log.CardID.String()))
		return err
	}

	query := `
		INSERT INTO review_logs (id, card_id, account_id, rating, reviewed_at, answer,
			due, stability, difficulty, elapsed_days, last_elapsed_days, scheduled_days, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		log.ID,
		log.CardID,
		log.AccountID,
		log.Rating,
		log.ReviewedAt,
		log.Answer,
		log.Due,
		log.Stability,
		log.Difficulty,
		log.ElapsedDays,
		log.LastElapsedDays,
		log.ScheduledDays,
		log.State,
	)
	if err != nil {
		l.Error("failed to append review log",
			slog.String("error", err.Error()),
			slog.String("card_id", log.CardID.String()))
		return MapError(err)
	}

	l.Debug("review log appended",
		slog.String("card_id", log.CardID.String()),
		slog.String("rating", string(log.Rating)))
	return nil
}

// ListByCard implements store.ReviewLogStore.ListByCard
// It returns the card's review history in chronological order.
func (s *PostgresReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	query := `
		SELECT id, card_id, account_id, rating, reviewed_at, answer,
			due, stability, difficulty, elapsed_days, last_elapsed_days, scheduled_days, state
		FROM review_logs
		WHERE card_id = $1
		ORDER BY reviewed_at
	`

	rows, err := s.db.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*domain.ReviewLog
	for rows.Next() {
		var rl domain.ReviewLog
		err := rows.Scan(
			&rl.ID,
			&rl.CardID,
			&rl.AccountID,
			&rl.Rating,
			&rl.ReviewedAt,
			&rl.Answer,
			&rl.Due,
			&rl.Stability,
			&rl.Difficulty,
			&rl.ElapsedDays,
			&rl.LastElapsedDays,
			&rl.ScheduledDays,
			&rl.State,
		)
		if err != nil {
			return nil, MapError(err)
		}
		logs = append(logs, &rl)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return logs, nil
}

// CountsByDay implements store.ReviewLogStore.CountsByDay
// Days are grouped in the given IANA timezone so review counts land on the
// user's local calendar day. Logs for soft-deleted cards are included; the
// history is permanent.
func (s *PostgresReviewLogStore) CountsByDay(
	ctx context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
	timezone string,
) ([]store.DailyCount, error) {
	query := `
		SELECT to_char(rl.reviewed_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM review_logs rl
		JOIN cards c ON c.id = rl.card_id
		WHERE rl.account_id = $1
		  AND ($3::uuid IS NULL OR c.deck_id = $3)
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

// WithTx implements store.ReviewLogStore.WithTx
// It returns a new ReviewLogStore instance that uses the provided transaction.
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{
		db:     tx,
		logger: s.logger,
	}
}
