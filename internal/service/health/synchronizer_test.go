package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingModel simulates a memory-model fault on every review.
type failingModel struct{}

func (failingModel) Next(*domain.Card, domain.Rating, time.Time) (*domain.Card, *domain.ReviewLog, error) {
	return nil, nil, errors.New("model blew up")
}

func seedAccount(t *testing.T, env *testEnv, timezone string) *domain.Account {
	t.Helper()
	account, err := domain.NewAccount("sync-test@example.com", timezone)
	require.NoError(t, err)
	require.NoError(t, env.accounts.Create(context.Background(), account))
	return account
}

func seedDeck(t *testing.T, env *testEnv, accountID uuid.UUID, name string) *domain.Deck {
	t.Helper()
	deck, err := domain.NewDeck(accountID, name)
	require.NoError(t, err)
	require.NoError(t, env.decks.Create(context.Background(), deck))
	return deck
}

func seedCard(t *testing.T, env *testEnv, accountID, deckID uuid.UUID) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(accountID, deckID, "hola", "hello")
	require.NoError(t, err)
	// Push the due date safely into the past so reviews pass the due gate
	// regardless of the fixture instant a test reviews at.
	card.Due = card.Due.Add(-time.Hour)
	require.NoError(t, env.cards.Create(context.Background(), card))
	return card
}

// seedScoredCard persists a reviewed card pinned at the given retrievability.
func seedScoredCard(
	t *testing.T,
	env *testEnv,
	accountID, deckID uuid.UUID,
	stability float64,
	lastReviewedAt time.Time,
	retrievability float64,
) *domain.Card {
	t.Helper()
	card := seedCard(t, env, accountID, deckID)
	difficulty := 5.0
	card.State = domain.CardStateReview
	card.Stability = &stability
	card.Difficulty = &difficulty
	card.Retrievability = &retrievability
	card.LastReviewedAt = &lastReviewedAt
	card.Reps = 1
	card.Due = lastReviewedAt.Add(24 * time.Hour)
	require.NoError(t, env.cards.Update(context.Background(), card))
	return card
}

func TestReviewCard(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("due_card_is_reviewed_and_pinned_at_full_recall", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedCard(t, env, account.ID, deck.ID)

		reviewed, err := env.sync.ReviewCard(
			context.Background(), card.ID, "hello", now, now, domain.RatingGood)
		require.NoError(t, err)

		require.NotNil(t, reviewed.Retrievability)
		assert.Equal(t, 1.0, *reviewed.Retrievability, "just-reviewed card must be at exactly full recall")
		assert.True(t, reviewed.Due.After(now), "next due date must be in the future")
		assert.Equal(t, 1, reviewed.Reps)

		stored, err := env.cards.GetByID(context.Background(), card.ID)
		require.NoError(t, err)
		assert.Equal(t, 1.0, *stored.Retrievability)

		require.Len(t, env.logs.logs, 1)
		assert.Equal(t, "hello", env.logs.logs[0].Answer)
		assert.Equal(t, domain.RatingGood, env.logs.logs[0].Rating)
		assert.Equal(t, card.ID, env.logs.logs[0].CardID)

		// Deck and account aggregates follow: one scored card at 1.0.
		storedDeck, err := env.decks.GetByID(context.Background(), deck.ID)
		require.NoError(t, err)
		require.NotNil(t, storedDeck.Retrievability)
		assert.Equal(t, 1.0, *storedDeck.Retrievability)

		storedAccount, err := env.accounts.GetByID(context.Background(), account.ID)
		require.NoError(t, err)
		require.NotNil(t, storedAccount.Retrievability)
		assert.Equal(t, 1.0, *storedAccount.Retrievability)
	})

	t.Run("pinned_even_when_prior_value_was_low", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedScoredCard(t, env, account.ID, deck.ID, 2.0, now.Add(-40*24*time.Hour), 0.31)

		reviewed, err := env.sync.ReviewCard(
			context.Background(), card.ID, "", now, now, domain.RatingAgain)
		require.NoError(t, err)
		assert.Equal(t, 1.0, *reviewed.Retrievability)
	})

	t.Run("not_due_card_is_skipped_without_writes", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedScoredCard(t, env, account.ID, deck.ID, 10.0, now.Add(-time.Hour), 0.99)
		card.Due = now.Add(48 * time.Hour)
		require.NoError(t, env.cards.Update(context.Background(), card))

		_, err := env.sync.ReviewCard(
			context.Background(), card.ID, "hello", now, now, domain.RatingGood)
		assert.ErrorIs(t, err, ErrCardNotDue)

		stored, err := env.cards.GetByID(context.Background(), card.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.99, *stored.Retrievability, "skipped review must not touch the card")
		assert.Empty(t, env.logs.logs)
	})

	t.Run("due_exactly_at_cutoff_is_reviewable", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedCard(t, env, account.ID, deck.ID)
		card.Due = now
		require.NoError(t, env.cards.Update(context.Background(), card))

		_, err := env.sync.ReviewCard(
			context.Background(), card.ID, "", now, now, domain.RatingGood)
		assert.NoError(t, err)
	})

	t.Run("missing_card", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		_, err := env.sync.ReviewCard(
			context.Background(), uuid.New(), "", now, now, domain.RatingGood)
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})

	t.Run("deleted_card", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedCard(t, env, account.ID, deck.ID)
		require.NoError(t, env.cards.SoftDelete(context.Background(), card.ID, now))

		_, err := env.sync.ReviewCard(
			context.Background(), card.ID, "", now, now, domain.RatingGood)
		assert.ErrorIs(t, err, ErrCardDeleted)
	})

	t.Run("invalid_rating", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		_, err := env.sync.ReviewCard(
			context.Background(), uuid.New(), "", now, now, "perfect")
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
	})

	t.Run("model_failure_applies_nothing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.sync.model = failingModel{}
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedCard(t, env, account.ID, deck.ID)

		_, err := env.sync.ReviewCard(
			context.Background(), card.ID, "", now, now, domain.RatingGood)
		require.Error(t, err)

		stored, err := env.cards.GetByID(context.Background(), card.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Retrievability, "rejected review must not leave partial state")
		assert.Equal(t, 0, stored.Reps)
		assert.Empty(t, env.logs.logs)
	})
}

func TestCreateCard(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	account := seedAccount(t, env, "UTC")
	deck := seedDeck(t, env, account.ID, "Spanish")
	seedScoredCard(t, env, account.ID, deck.ID, 10.0, time.Now().UTC(), 0.8)
	require.NoError(t, env.decks.RecomputeHealth(context.Background(), deck.ID))
	require.NoError(t, env.accounts.RecomputeHealth(context.Background(), account.ID))
	accountRecomputes := env.accounts.recomputeCalls

	card, err := domain.NewCard(account.ID, deck.ID, "gato", "cat")
	require.NoError(t, err)
	require.NoError(t, env.sync.CreateCard(context.Background(), card))

	stored, err := env.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateNew, stored.State)

	// The new card has no retrievability, so the aggregates keep their
	// value, but both must have been recomputed.
	storedDeck, err := env.decks.GetByID(context.Background(), deck.ID)
	require.NoError(t, err)
	require.NotNil(t, storedDeck.Retrievability)
	assert.InDelta(t, 0.8, *storedDeck.Retrievability, 1e-9)
	assert.Contains(t, env.decks.recomputed, deck.ID)
	assert.Equal(t, accountRecomputes+1, env.accounts.recomputeCalls)
}

func TestEditCard(t *testing.T) {
	t.Parallel()

	t.Run("content_edit_resyncs_deck_and_account", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedCard(t, env, account.ID, deck.ID)
		accountRecomputes := env.accounts.recomputeCalls

		card.Front = "adios"
		require.NoError(t, env.sync.EditCard(context.Background(), card))

		stored, err := env.cards.GetByID(context.Background(), card.ID)
		require.NoError(t, err)
		assert.Equal(t, "adios", stored.Front)
		assert.Equal(t, []uuid.UUID{deck.ID}, env.decks.recomputed)
		assert.Equal(t, accountRecomputes+1, env.accounts.recomputeCalls,
			"an edit re-aggregates the account alongside the deck")
	})

	t.Run("memory_field_edit_keeps_aggregates_in_step", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		now := time.Now().UTC()
		card := seedScoredCard(t, env, account.ID, deck.ID, 10.0, now, 0.8)

		low := 0.2
		card.Retrievability = &low
		require.NoError(t, env.sync.EditCard(context.Background(), card))

		storedDeck, err := env.decks.GetByID(context.Background(), deck.ID)
		require.NoError(t, err)
		storedAccount, err := env.accounts.GetByID(context.Background(), account.ID)
		require.NoError(t, err)
		require.NotNil(t, storedDeck.Retrievability)
		require.NotNil(t, storedAccount.Retrievability)
		assert.InDelta(t, 0.2, *storedDeck.Retrievability, 1e-9)
		assert.InDelta(t, *storedDeck.Retrievability, *storedAccount.Retrievability, 1e-9,
			"single-card account: deck and account aggregates must agree after an edit")
	})

	t.Run("deck_move_resyncs_both_decks", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		source := seedDeck(t, env, account.ID, "Spanish")
		target := seedDeck(t, env, account.ID, "French")
		now := time.Now().UTC()
		card := seedScoredCard(t, env, account.ID, source.ID, 10.0, now, 0.8)
		seedScoredCard(t, env, account.ID, source.ID, 10.0, now, 0.6)

		card.DeckID = target.ID
		require.NoError(t, env.sync.EditCard(context.Background(), card))

		storedSource, err := env.decks.GetByID(context.Background(), source.ID)
		require.NoError(t, err)
		require.NotNil(t, storedSource.Retrievability)
		assert.InDelta(t, 0.6, *storedSource.Retrievability, 1e-9, "source deck mean drops the moved card")

		storedTarget, err := env.decks.GetByID(context.Background(), target.ID)
		require.NoError(t, err)
		require.NotNil(t, storedTarget.Retrievability)
		assert.InDelta(t, 0.8, *storedTarget.Retrievability, 1e-9)

		storedAccount, err := env.accounts.GetByID(context.Background(), account.ID)
		require.NoError(t, err)
		require.NotNil(t, storedAccount.Retrievability)
		assert.InDelta(t, 0.7, *storedAccount.Retrievability, 1e-9,
			"account mean is unchanged by a move but still re-aggregated")
	})

	t.Run("deleted_card", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		card := seedCard(t, env, account.ID, deck.ID)
		require.NoError(t, env.cards.SoftDelete(context.Background(), card.ID, time.Now().UTC()))

		err := env.sync.EditCard(context.Background(), card)
		assert.ErrorIs(t, err, ErrCardDeleted)
	})
}

func TestRemoveCard(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	account := seedAccount(t, env, "UTC")
	deck := seedDeck(t, env, account.ID, "Spanish")
	now := time.Now().UTC()
	keep := seedScoredCard(t, env, account.ID, deck.ID, 10.0, now, 0.9)
	remove := seedScoredCard(t, env, account.ID, deck.ID, 10.0, now, 0.1)

	require.NoError(t, env.sync.RemoveCard(context.Background(), remove.ID, now))

	stored, err := env.cards.GetByID(context.Background(), remove.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted())

	storedDeck, err := env.decks.GetByID(context.Background(), deck.ID)
	require.NoError(t, err)
	require.NotNil(t, storedDeck.Retrievability)
	assert.InDelta(t, 0.9, *storedDeck.Retrievability, 1e-9, "deleted card leaves the deck mean")

	storedAccount, err := env.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, storedAccount.Retrievability)
	assert.InDelta(t, 0.9, *storedAccount.Retrievability, 1e-9)

	storedKeep, err := env.cards.GetByID(context.Background(), keep.ID)
	require.NoError(t, err)
	assert.False(t, storedKeep.Deleted())

	err = env.sync.RemoveCard(context.Background(), remove.ID, now)
	assert.ErrorIs(t, err, ErrCardDeleted, "removing twice is rejected")
}

func TestForceSyncCardsHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	account := seedAccount(t, env, "UTC")
	deck := seedDeck(t, env, account.ID, "Spanish")
	anchor := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	card := seedScoredCard(t, env, account.ID, deck.ID, 10.0, anchor.Add(-10*24*time.Hour), 0.42)
	unreviewed := seedCard(t, env, account.ID, deck.ID)
	// Memory state seeded at import time has no review history; decay
	// anchors at the creation instant instead.
	imported := seedCard(t, env, account.ID, deck.ID)
	importedStability := 10.0
	imported.Stability = &importedStability
	imported.CreatedAt = anchor.Add(-10 * 24 * time.Hour)
	require.NoError(t, env.cards.Update(context.Background(), imported))

	require.NoError(t, env.sync.ForceSyncCardsHealth(context.Background(), account.ID, anchor))

	stored, err := env.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Retrievability)
	assert.InDelta(t, 0.9, *stored.Retrievability, 1e-9, "ten days at stability ten decays to the design point")
	first := *stored.Retrievability

	storedNew, err := env.cards.GetByID(context.Background(), unreviewed.ID)
	require.NoError(t, err)
	assert.Nil(t, storedNew.Retrievability)

	storedImported, err := env.cards.GetByID(context.Background(), imported.ID)
	require.NoError(t, err)
	require.NotNil(t, storedImported.Retrievability)
	assert.InDelta(t, 0.9, *storedImported.Retrievability, 1e-9,
		"imported state decays from the creation instant")

	// Idempotent for a fixed anchor.
	require.NoError(t, env.sync.ForceSyncCardsHealth(context.Background(), account.ID, anchor))
	stored, err = env.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.Retrievability)
}

func TestForceSyncMissingEntitiesAreNoOps(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	assert.NoError(t, env.sync.ForceSyncDeckHealth(context.Background(), uuid.New()))
	assert.NoError(t, env.sync.ForceSyncAccountHealth(context.Background(), uuid.New()))
}

func TestMaybeSyncUserHealth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

	t.Run("stale_watermark_triggers_full_sync", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "UTC")
		deck := seedDeck(t, env, account.ID, "Spanish")
		seedScoredCard(t, env, account.ID, deck.ID, 10.0, now.Add(-10*24*time.Hour), 0.42)

		stale := env.accounts.accounts[account.ID]
		stale.LastHealthSyncAt = now.Add(-26 * time.Hour)

		synced, err := env.sync.MaybeSyncUserHealth(context.Background(), account.ID, now)
		require.NoError(t, err)
		assert.True(t, synced, "a day boundary has passed, so a full sync is due")

		stored, err := env.accounts.GetByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, now, stored.LastHealthSyncAt, "watermark advances to the sync instant")
		require.NotNil(t, stored.Retrievability)
		assert.InDelta(t, 0.9, *stored.Retrievability, 1e-9)

		storedDeck, err := env.decks.GetByID(context.Background(), deck.ID)
		require.NoError(t, err)
		require.NotNil(t, storedDeck.Retrievability)
		assert.InDelta(t, 0.9, *storedDeck.Retrievability, 1e-9)

		// Within the same local day the second call is a read-only no-op.
		cardRecomputes := env.cards.recomputeCalls
		synced, err = env.sync.MaybeSyncUserHealth(context.Background(), account.ID, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, synced)
		assert.Equal(t, cardRecomputes, env.cards.recomputeCalls)
	})

	t.Run("day_boundary_follows_account_timezone", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		account := seedAccount(t, env, "America/New_York")

		// 03:00 UTC on Apr 10 is still Apr 9, 23:00 in New York; a sync
		// from 02:00 UTC (22:00 local) the same evening is not stale.
		stale := env.accounts.accounts[account.ID]
		stale.LastHealthSyncAt = time.Date(2026, 4, 10, 2, 0, 0, 0, time.UTC)

		synced, err := env.sync.MaybeSyncUserHealth(
			context.Background(), account.ID, time.Date(2026, 4, 10, 3, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, synced, "both instants fall on the same New York calendar day")

		// By 05:00 UTC the local day has rolled over to Apr 10.
		synced, err = env.sync.MaybeSyncUserHealth(
			context.Background(), account.ID, time.Date(2026, 4, 10, 5, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, synced, "the New York day boundary at 04:00 UTC has passed")
	})

	t.Run("missing_account", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		synced, err := env.sync.MaybeSyncUserHealth(context.Background(), uuid.New(), now)
		require.NoError(t, err)
		assert.False(t, synced)
	})
}
