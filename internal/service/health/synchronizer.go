package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/domain/srs"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
)

// Verify interface compliance at compile time
var _ Synchronizer = (*synchronizer)(nil)

// txStores bundles the transactional store handles handed to a unit of work.
type txStores struct {
	cards    store.CardStore
	decks    store.DeckStore
	accounts store.AccountStore
	logs     store.ReviewLogStore
}

// txFn is a unit of work executed against one set of transactional stores.
type txFn func(ctx context.Context, st txStores) error

// synchronizer implements the Synchronizer interface.
type synchronizer struct {
	db       *sql.DB
	cards    store.CardStore
	decks    store.DeckStore
	accounts store.AccountStore
	logs     store.ReviewLogStore
	model    srs.MemoryModel
	logger   *slog.Logger

	// run executes a unit of work atomically. In production it wraps
	// store.RunInTransaction; tests swap in a pass-through.
	run func(ctx context.Context, fn txFn) error
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(
	db *sql.DB,
	cards store.CardStore,
	decks store.DeckStore,
	accounts store.AccountStore,
	logs store.ReviewLogStore,
	model srs.MemoryModel,
	logger *slog.Logger,
) Synchronizer {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if decks == nil {
		panic("decks cannot be nil")
	}
	if accounts == nil {
		panic("accounts cannot be nil")
	}
	if logs == nil {
		panic("logs cannot be nil")
	}
	if model == nil {
		panic("model cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	s := &synchronizer{
		db:       db,
		cards:    cards,
		decks:    decks,
		accounts: accounts,
		logs:     logs,
		model:    model,
		logger:   logger.With(slog.String("component", "health_synchronizer")),
	}
	s.run = s.runInTransaction
	return s
}

// runInTransaction executes fn against transactional store handles. The
// write-then-resync ordering inside each mutation relies on this: the resync
// reads the just-written rows of the same transaction, never a stale snapshot.
func (s *synchronizer) runInTransaction(ctx context.Context, fn txFn) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, txStores{
			cards:    s.cards.WithTx(tx),
			decks:    s.decks.WithTx(tx),
			accounts: s.accounts.WithTx(tx),
			logs:     s.logs.WithTx(tx),
		})
	})
}

// ForceSyncCardsHealth implements Synchronizer.ForceSyncCardsHealth.
// The recompute is a single set-based pass evaluated inside the store, so
// it needs no surrounding transaction of its own.
func (s *synchronizer) ForceSyncCardsHealth(
	ctx context.Context,
	accountID uuid.UUID,
	anchor time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.cards.RecomputeHealth(ctx, accountID, anchor); err != nil {
		log.Error("card health sync failed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return fmt.Errorf("failed to sync card health: %w", err)
	}
	return nil
}

// ForceSyncDeckHealth implements Synchronizer.ForceSyncDeckHealth.
// A missing deck is a no-op.
func (s *synchronizer) ForceSyncDeckHealth(ctx context.Context, deckID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.decks.RecomputeHealth(ctx, deckID); err != nil {
		log.Error("deck health sync failed",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()))
		return fmt.Errorf("failed to sync deck health: %w", err)
	}
	return nil
}

// ForceSyncAccountHealth implements Synchronizer.ForceSyncAccountHealth.
// A missing account is a no-op.
func (s *synchronizer) ForceSyncAccountHealth(ctx context.Context, accountID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.accounts.RecomputeHealth(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil
		}
		log.Error("account health sync failed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return fmt.Errorf("failed to sync account health: %w", err)
	}
	return nil
}

// ReviewCard implements Synchronizer.ReviewCard.
func (s *synchronizer) ReviewCard(
	ctx context.Context,
	cardID uuid.UUID,
	answer string,
	now time.Time,
	dueCutoff time.Time,
	rating domain.Rating,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.IsValidRating(rating) {
		return nil, domain.ErrInvalidRating
	}

	var reviewed *domain.Card
	err := s.run(ctx, func(ctx context.Context, st txStores) error {
		card, err := st.cards.GetByID(ctx, cardID)
		if err != nil {
			return fmt.Errorf("failed to get card: %w", err)
		}
		if card.Deleted() {
			return ErrCardDeleted
		}

		// Due date is the gate, not caller intent: a card that became
		// not-due between render and submit is skipped, not failed.
		if card.Due.After(dueCutoff) {
			log.Debug("review skipped, card not due",
				slog.String("card_id", cardID.String()),
				slog.Time("due", card.Due),
				slog.Time("cutoff", dueCutoff))
			return ErrCardNotDue
		}

		updated, entry, err := s.model.Next(card, rating, now)
		if err != nil {
			return fmt.Errorf("memory model rejected review: %w", err)
		}
		entry.Answer = answer

		// A just-reviewed card is at maximum recall regardless of what the
		// decay formula would compute for its old state.
		one := 1.0
		updated.Retrievability = &one

		if err := st.cards.Update(ctx, updated); err != nil {
			return fmt.Errorf("failed to persist reviewed card: %w", err)
		}
		if err := st.logs.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append review log: %w", err)
		}
		if err := st.decks.RecomputeHealth(ctx, updated.DeckID); err != nil {
			return fmt.Errorf("failed to sync deck health: %w", err)
		}
		if err := st.accounts.RecomputeHealth(ctx, updated.AccountID); err != nil {
			return fmt.Errorf("failed to sync account health: %w", err)
		}

		reviewed = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("card reviewed",
		slog.String("card_id", cardID.String()),
		slog.String("rating", string(rating)),
		slog.Time("next_due", reviewed.Due))
	return reviewed, nil
}

// CreateCard implements Synchronizer.CreateCard.
func (s *synchronizer) CreateCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.run(ctx, func(ctx context.Context, st txStores) error {
		if err := st.cards.Create(ctx, card); err != nil {
			return fmt.Errorf("failed to create card: %w", err)
		}
		if err := st.decks.RecomputeHealth(ctx, card.DeckID); err != nil {
			return fmt.Errorf("failed to sync deck health: %w", err)
		}
		if err := st.accounts.RecomputeHealth(ctx, card.AccountID); err != nil {
			return fmt.Errorf("failed to sync account health: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))
	return nil
}

// EditCard implements Synchronizer.EditCard.
func (s *synchronizer) EditCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.run(ctx, func(ctx context.Context, st txStores) error {
		current, err := st.cards.GetByID(ctx, card.ID)
		if err != nil {
			return fmt.Errorf("failed to get card: %w", err)
		}
		if current.Deleted() {
			return ErrCardDeleted
		}

		if err := st.cards.Update(ctx, card); err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		if err := st.decks.RecomputeHealth(ctx, card.DeckID); err != nil {
			return fmt.Errorf("failed to sync deck health: %w", err)
		}
		// A move affects the source deck too.
		if current.DeckID != card.DeckID {
			if err := st.decks.RecomputeHealth(ctx, current.DeckID); err != nil {
				return fmt.Errorf("failed to sync source deck health: %w", err)
			}
		}
		// An edit can rewrite the card's memory fields, so the account
		// mean must be re-aggregated as well.
		if err := st.accounts.RecomputeHealth(ctx, card.AccountID); err != nil {
			return fmt.Errorf("failed to sync account health: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug("card edited", slog.String("card_id", card.ID.String()))
	return nil
}

// RemoveCard implements Synchronizer.RemoveCard.
func (s *synchronizer) RemoveCard(ctx context.Context, cardID uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.run(ctx, func(ctx context.Context, st txStores) error {
		card, err := st.cards.GetByID(ctx, cardID)
		if err != nil {
			return fmt.Errorf("failed to get card: %w", err)
		}
		if card.Deleted() {
			return ErrCardDeleted
		}

		if err := st.cards.SoftDelete(ctx, cardID, at); err != nil {
			return fmt.Errorf("failed to delete card: %w", err)
		}
		if err := st.decks.RecomputeHealth(ctx, card.DeckID); err != nil {
			return fmt.Errorf("failed to sync deck health: %w", err)
		}
		if err := st.accounts.RecomputeHealth(ctx, card.AccountID); err != nil {
			return fmt.Errorf("failed to sync account health: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug("card removed", slog.String("card_id", cardID.String()))
	return nil
}

// MaybeSyncUserHealth implements Synchronizer.MaybeSyncUserHealth.
func (s *synchronizer) MaybeSyncUserHealth(
	ctx context.Context,
	accountID uuid.UUID,
	now time.Time,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get account: %w", err)
	}

	loc, err := account.Location()
	if err != nil {
		return false, fmt.Errorf("failed to resolve account timezone: %w", err)
	}

	// The watermark is compared against the start of the current local
	// day: the cache is resynced at most once per account per day, however
	// often this is called.
	dayStart := startOfDay(now, loc)
	if !account.LastHealthSyncAt.Before(dayStart) {
		log.Debug("health sync not due",
			slog.String("account_id", accountID.String()),
			slog.Time("last_sync", account.LastHealthSyncAt))
		return false, nil
	}

	err = s.run(ctx, func(ctx context.Context, st txStores) error {
		if err := st.cards.RecomputeHealth(ctx, accountID, now); err != nil {
			return fmt.Errorf("failed to sync card health: %w", err)
		}

		decks, err := st.decks.ListByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list decks: %w", err)
		}
		for _, deck := range decks {
			if err := st.decks.RecomputeHealth(ctx, deck.ID); err != nil {
				return fmt.Errorf("failed to sync deck health: %w", err)
			}
		}

		if err := st.accounts.RecomputeHealth(ctx, accountID); err != nil {
			return fmt.Errorf("failed to sync account health: %w", err)
		}
		if err := st.accounts.UpdateLastHealthSync(ctx, accountID, now); err != nil {
			return fmt.Errorf("failed to advance sync watermark: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Info("account health synced",
		slog.String("account_id", accountID.String()),
		slog.Time("synced_at", now))
	return true, nil
}

// startOfDay returns midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
