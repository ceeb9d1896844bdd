package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
)

// PostgresAccountStore implements the store.AccountStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAccountStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAccountStore creates a new PostgreSQL implementation of the AccountStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresAccountStore(db store.DBTX, logger *slog.Logger) *PostgresAccountStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccountStore{
		db:     db,
		logger: logger.With(slog.String("component", "account_store")),
	}
}

// Ensure PostgresAccountStore implements store.AccountStore interface
var _ store.AccountStore = (*PostgresAccountStore)(nil)

// Create implements store.AccountStore.Create
// Returns store.ErrEmailExists if the email address is already registered.
func (s *PostgresAccountStore) Create(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during create",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}

	query := `
		INSERT INTO accounts (id, email, timezone, retrievability, last_health_sync_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.Timezone,
		account.Retrievability,
		account.LastHealthSyncAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("email already exists", slog.String("email", account.Email))
			return store.ErrEmailExists
		}
		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return MapError(err)
	}

	log.Debug("account created", slog.String("account_id", account.ID.String()))
	return nil
}

// GetByID implements store.AccountStore.GetByID
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *PostgresAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, email, timezone, retrievability, last_health_sync_at, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var (
		account        domain.Account
		retrievability sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Email,
		&account.Timezone,
		&retrievability,
		&account.LastHealthSyncAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, MapError(err)
	}

	if retrievability.Valid {
		account.Retrievability = &retrievability.Float64
	}

	return &account, nil
}

// RecomputeHealth implements store.AccountStore.RecomputeHealth
// It rolls the account's retrievability up as the mean over all of the
// account's non-deleted cards with a computed retrievability, regardless of
// deck. An account with no such cards gets NULL.
func (s *PostgresAccountStore) RecomputeHealth(ctx context.Context, accountID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET retrievability = (
			SELECT AVG(retrievability)
			FROM cards
			WHERE cards.account_id = accounts.id
			  AND cards.deleted_at IS NULL
			  AND cards.retrievability IS NOT NULL
		)
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, accountID)
	if err != nil {
		log.Error("failed to recompute account health",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "account"); err != nil {
		return store.ErrAccountNotFound
	}

	log.Debug("account health recomputed", slog.String("account_id", accountID.String()))
	return nil
}

// UpdateLastHealthSync implements store.AccountStore.UpdateLastHealthSync
// It records the instant of the account's most recent full health pass,
// which gates the lazy read-path sync to once per local day.
func (s *PostgresAccountStore) UpdateLastHealthSync(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	query := `
		UPDATE accounts
		SET last_health_sync_at = $2, updated_at = $2
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, accountID, at)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "account"); err != nil {
		return store.ErrAccountNotFound
	}
	return nil
}

// WithTx implements store.AccountStore.WithTx
// It returns a new AccountStore instance that uses the provided transaction.
func (s *PostgresAccountStore) WithTx(tx *sql.Tx) store.AccountStore {
	return &PostgresAccountStore{
		db:     tx,
		logger: s.logger,
	}
}
