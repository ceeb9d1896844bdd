package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/stretchr/testify/require"
)

// Test timeout to prevent long-running tests
const testTimeout = 5 * time.Second

// integrationTestEnvironment reports whether integration tests can run,
// by checking DATABASE_URL.
func integrationTestEnvironment() bool {
	return os.Getenv("DATABASE_URL") != ""
}

// getTestDB opens a connection to the test database and registers cleanup.
func getTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, dbURL, "DATABASE_URL environment variable not set")

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	require.NoError(t, db.Ping(), "Failed to ping database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// withTx executes a function within a transaction and rolls it back
// afterward, so tests are isolated and don't affect each other.
func withTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		// Ignore error if transaction was already committed
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Error rolling back transaction: %v", err)
		}
	}()

	fn(tx)
}

// insertTestAccount creates and persists an account for use as a fixture.
func insertTestAccount(t *testing.T, tx *sql.Tx, timezone string) *domain.Account {
	t.Helper()

	email := fmt.Sprintf("test-%s@example.com", uuid.New().String()[:8])
	account, err := domain.NewAccount(email, timezone)
	require.NoError(t, err, "Failed to create test account")

	accountStore := NewPostgresAccountStore(tx, nil)
	require.NoError(t, accountStore.Create(context.Background(), account), "Failed to insert test account")
	return account
}

// insertTestDeck creates and persists a deck for use as a fixture.
func insertTestDeck(t *testing.T, tx *sql.Tx, accountID uuid.UUID, name string) *domain.Deck {
	t.Helper()

	deck, err := domain.NewDeck(accountID, name)
	require.NoError(t, err, "Failed to create test deck")

	deckStore := NewPostgresDeckStore(tx, nil)
	require.NoError(t, deckStore.Create(context.Background(), deck), "Failed to insert test deck")
	return deck
}

// insertTestCard creates and persists a new (unreviewed) card fixture.
func insertTestCard(t *testing.T, tx *sql.Tx, accountID, deckID uuid.UUID) *domain.Card {
	t.Helper()

	card, err := domain.NewCard(accountID, deckID, "front text", "back text")
	require.NoError(t, err, "Failed to create test card")

	cardStore := NewPostgresCardStore(tx, nil)
	require.NoError(t, cardStore.Create(context.Background(), card), "Failed to insert test card")
	return card
}

// insertReviewedCard persists a card that looks like it was reviewed at the
// given instant with the given stability.
func insertReviewedCard(
	t *testing.T,
	tx *sql.Tx,
	accountID, deckID uuid.UUID,
	stability float64,
	reviewedAt time.Time,
	retrievability float64,
) *domain.Card {
	t.Helper()

	card, err := domain.NewCard(accountID, deckID, "front text", "back text")
	require.NoError(t, err, "Failed to create test card")

	difficulty := 5.0
	card.State = domain.CardStateReview
	card.Stability = &stability
	card.Difficulty = &difficulty
	card.Retrievability = &retrievability
	card.LastReviewedAt = &reviewedAt
	card.Reps = 1
	card.Due = reviewedAt.Add(24 * time.Hour)

	cardStore := NewPostgresCardStore(tx, nil)
	require.NoError(t, cardStore.Create(context.Background(), card), "Failed to insert reviewed card")
	return card
}
