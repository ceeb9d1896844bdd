package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAccountStore_CreateAndGetByID(t *testing.T) {
	if !integrationTestEnvironment() {
		t.Skip("Skipping integration test - requires DATABASE_URL environment variable")
	}

	t.Parallel()

	db := getTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		accountStore := NewPostgresAccountStore(tx, nil)

		account := insertTestAccount(t, tx, "America/New_York")

		retrieved, err := accountStore.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, retrieved.ID)
		assert.Equal(t, account.Email, retrieved.Email)
		assert.Equal(t, "America/New_York", retrieved.Timezone)
		assert.Nil(t, retrieved.Retrievability)
		assert.WithinDuration(t, account.LastHealthSyncAt, retrieved.LastHealthSyncAt, time.Millisecond,
			"Watermark starts at creation time")

		_, err = accountStore.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrAccountNotFound)
	})
}

func TestPostgresAccountStore_DuplicateEmail(t *testing.T) {
	if !integrationTestEnvironment() {
		t.Skip("Skipping integration test - requires DATABASE_URL environment variable")
	}

	t.Parallel()

	db := getTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		accountStore := NewPostgresAccountStore(tx, nil)
		existing := insertTestAccount(t, tx, "UTC")

		duplicate, err := domain.NewAccount(existing.Email, "UTC")
		require.NoError(t, err)

		err = accountStore.Create(ctx, duplicate)
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})
}

func TestPostgresAccountStore_RecomputeHealth(t *testing.T) {
	if !integrationTestEnvironment() {
		t.Skip("Skipping integration test - requires DATABASE_URL environment variable")
	}

	t.Parallel()

	db := getTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		account := insertTestAccount(t, tx, "UTC")
		spanish := insertTestDeck(t, tx, account.ID, "Spanish")
		french := insertTestDeck(t, tx, account.ID, "French")
		accountStore := NewPostgresAccountStore(tx, nil)

		now := time.Now().UTC()
		// The account rollup spans decks: mean of 0.9 and 0.5 is 0.7.
		insertReviewedCard(t, tx, account.ID, spanish.ID, 10.0, now, 0.9)
		insertReviewedCard(t, tx, account.ID, french.ID, 10.0, now, 0.5)
		insertTestCard(t, tx, account.ID, spanish.ID)

		require.NoError(t, accountStore.RecomputeHealth(ctx, account.ID))

		retrieved, err := accountStore.GetByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, retrieved.Retrievability)
		assert.InDelta(t, 0.7, *retrieved.Retrievability, 1e-9)

		t.Run("no_scored_cards_gets_null", func(t *testing.T) {
			empty := insertTestAccount(t, tx, "UTC")
			require.NoError(t, accountStore.RecomputeHealth(ctx, empty.ID))

			retrieved, err := accountStore.GetByID(ctx, empty.ID)
			require.NoError(t, err)
			assert.Nil(t, retrieved.Retrievability)
		})

		t.Run("missing_account", func(t *testing.T) {
			err := accountStore.RecomputeHealth(ctx, uuid.New())
			assert.ErrorIs(t, err, store.ErrAccountNotFound)
		})
	})
}

func TestPostgresAccountStore_UpdateLastHealthSync(t *testing.T) {
	if !integrationTestEnvironment() {
		t.Skip("Skipping integration test - requires DATABASE_URL environment variable")
	}

	t.Parallel()

	db := getTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		accountStore := NewPostgresAccountStore(tx, nil)
		account := insertTestAccount(t, tx, "UTC")

		syncedAt := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, accountStore.UpdateLastHealthSync(ctx, account.ID, syncedAt))

		retrieved, err := accountStore.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, syncedAt, retrieved.LastHealthSyncAt, time.Millisecond)

		err = accountStore.UpdateLastHealthSync(ctx, uuid.New(), syncedAt)
		assert.ErrorIs(t, err, store.ErrAccountNotFound)
	})
}
