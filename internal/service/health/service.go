// Package health keeps the three-tier retrievability cache (card, deck,
// account) consistent. Mutations (review, create, edit, remove) sync
// eagerly: the write and the aggregate recomputes run in one transaction,
// so a write never leaves the cache stale. Ordinary reads go through the
// lazy entry point, which performs at most one full resync per account per
// calendar day in the account's timezone. Only the passive passage of time
// is allowed to make the cache stale between accesses.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
)

// Common error types for the Synchronizer.
var (
	// ErrCardNotDue indicates that the card's due date is after the review
	// cutoff. Reviewing ahead of schedule is disallowed; callers should
	// treat this as a skip (a UI race, not a fault).
	ErrCardNotDue = errors.New("card is not due for review")

	// ErrCardDeleted indicates an attempt to review or edit a soft-deleted card.
	ErrCardDeleted = errors.New("card is deleted")
)

// Synchronizer keeps card, deck, and account retrievability in sync.
//
// The three Force* operations are pure re-aggregations over current card
// state: they re-derive the cached value rather than incrementing it, so
// concurrent recomputes for the same scope self-heal on the next pass.
// Force* operations referencing a missing entity are no-ops, not errors;
// the mutation operations assume the caller has already checked access.
type Synchronizer interface {
	// ForceSyncCardsHealth recomputes the cached retrievability of every
	// non-deleted card of the account with defined memory state from the
	// forgetting curve, anchored at the given instant. Idempotent for a
	// fixed anchor. Cards with no stability are left alone.
	ForceSyncCardsHealth(ctx context.Context, accountID uuid.UUID, anchor time.Time) error

	// ForceSyncDeckHealth recomputes one deck's retrievability as the mean
	// over its own non-deleted cards' current values, or nil if no card
	// carries a value. Must be called after any event that changes deck
	// membership or a member card's retrievability.
	ForceSyncDeckHealth(ctx context.Context, deckID uuid.UUID) error

	// ForceSyncAccountHealth recomputes the account's retrievability the
	// same way, over all of the account's non-deleted cards directly
	// (not as an average of deck averages, which would weight decks
	// unequally by card count).
	ForceSyncAccountHealth(ctx context.Context, accountID uuid.UUID) error

	// ReviewCard processes one review. If the card's due date is after
	// dueCutoff the review is rejected with ErrCardNotDue and nothing is
	// written. Otherwise, in a single transaction: the memory model
	// computes the card's next state, the state is persisted, the review
	// log is appended, the card's retrievability is forced to exactly 1
	// (a just-reviewed card is at maximum recall by definition), and the
	// card's deck and account aggregates are recomputed. A memory-model
	// failure aborts the transaction with nothing applied.
	// Returns the updated card on success.
	ReviewCard(
		ctx context.Context,
		cardID uuid.UUID,
		answer string,
		now time.Time,
		dueCutoff time.Time,
		rating domain.Rating,
	) (*domain.Card, error)

	// CreateCard persists a new card and recomputes its deck's and
	// account's aggregates in the same transaction.
	CreateCard(ctx context.Context, card *domain.Card) error

	// EditCard persists changes to an existing card and recomputes the
	// aggregates of every deck it affects: the card's current deck, plus
	// the previous deck when the edit moves the card between decks. A move
	// alone does not trigger an account resync, because the account
	// aggregate is deck-independent.
	EditCard(ctx context.Context, card *domain.Card) error

	// RemoveCard soft-deletes a card at the given instant and recomputes
	// its deck's and account's aggregates in the same transaction. The
	// card's review logs are retained.
	RemoveCard(ctx context.Context, cardID uuid.UUID, at time.Time) error

	// MaybeSyncUserHealth is the lazy entry point, called on ordinary read
	// access such as a session or page load. If the account's last full
	// sync predates the start of the current calendar day in the account's
	// timezone, it recomputes all card retrievabilities, every deck
	// aggregate, and the account aggregate, advances the watermark to now,
	// and returns true so the caller re-reads fresh data. Otherwise it
	// writes nothing and returns false. A missing account returns false.
	MaybeSyncUserHealth(ctx context.Context, accountID uuid.UUID, now time.Time) (bool, error)
}
