package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
)

// DailyCount is one (calendar day, count) pair produced by the grouped
// review-log and due-date queries. Day is a canonical YYYY-MM-DD string in
// the timezone the query grouped by; the lexicographic order of Day values
// therefore matches chronological order.
type DailyCount struct {
	Day   string
	Count int
}

// ReviewLogStore defines the interface for review log persistence.
// Logs are append-only: there are no update or delete operations, and logs
// remain readable after their card is soft-deleted. They are the permanent
// source of truth for retrospective statistics.
type ReviewLogStore interface {
	// Append inserts a new review log entry.
	// It handles domain validation internally.
	Append(ctx context.Context, log *domain.ReviewLog) error

	// ListByCard returns a card's review history, oldest first.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error)

	// CountsByDay returns the number of reviews the account performed per
	// calendar day, optionally restricted to one deck (by the card's deck
	// at review-log read time). Days are canonical YYYY-MM-DD strings
	// computed in the given IANA timezone. Logs of soft-deleted cards are
	// included: history is permanent.
	CountsByDay(ctx context.Context, accountID uuid.UUID, deckID *uuid.UUID, timezone string) ([]DailyCount, error)

	// WithTx returns a new ReviewLogStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
