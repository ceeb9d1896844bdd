package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
)

// Service binds the pure windowing functions to the store: it fetches the
// account's timezone, runs the day-grouped aggregate queries in that
// timezone, and shapes the rows into fixed-length series.
type Service struct {
	cards    store.CardStore
	logs     store.ReviewLogStore
	accounts store.AccountStore
	logger   *slog.Logger
}

// NewService creates a new stats Service.
func NewService(
	cards store.CardStore,
	logs store.ReviewLogStore,
	accounts store.AccountStore,
	logger *slog.Logger,
) *Service {
	// Validate inputs
	if cards == nil {
		panic("cards cannot be nil")
	}
	if logs == nil {
		panic("logs cannot be nil")
	}
	if accounts == nil {
		panic("accounts cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cards:    cards,
		logs:     logs,
		accounts: accounts,
		logger:   logger.With(slog.String("component", "stats_service")),
	}
}

// ReviewActivity returns a retrospective daily series of review counts for
// the account, optionally restricted to one deck, covering the `days`
// calendar days ending at referenceInstant's local day. Reviews of since-
// deleted cards are included; history is permanent.
func (s *Service) ReviewActivity(
	ctx context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
	referenceInstant time.Time,
	days int,
) ([]DailyPoint, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	loc, err := account.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account timezone: %w", err)
	}

	counts, err := s.logs.CountsByDay(ctx, accountID, deckID, account.Timezone)
	if err != nil {
		log.Error("failed to load review counts",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, fmt.Errorf("failed to load review counts: %w", err)
	}

	return PastWindow(loc, referenceInstant, ToSparseDailyCounts(counts), days), nil
}

// DueForecast returns a predictive daily series of due-card counts for the
// account, optionally restricted to one deck, covering the `days` calendar
// days starting at referenceInstant's local day. Cards overdue as of the
// reference day are folded into the first entry.
func (s *Service) DueForecast(
	ctx context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
	referenceInstant time.Time,
	days int,
) ([]DailyPoint, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	loc, err := account.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account timezone: %w", err)
	}

	counts, err := s.cards.DueCountsByDay(ctx, accountID, deckID, account.Timezone)
	if err != nil {
		log.Error("failed to load due counts",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, fmt.Errorf("failed to load due counts: %w", err)
	}

	return FutureWindow(loc, referenceInstant, ToSparseDailyCounts(counts), days), nil
}

// MaturityBreakdown returns the maturity histogram over the account's
// non-deleted cards, optionally restricted to one deck.
func (s *Service) MaturityBreakdown(
	ctx context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
) (map[MaturityBucket]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, err := s.cards.ListActive(ctx, accountID, deckID)
	if err != nil {
		log.Error("failed to list cards",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	return MaturityHistogram(cards), nil
}
