// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the wallet ledger system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
	"github.com/marketplace-wallet-ledger/internal/platform/persistence"
)

const (
	pgCheckViolation  = "23514"
	pgUniqueViolation = "23505"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet in the database. A partial unique index guarantees
// at most one default wallet per owner and currency.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_id, currency, balance, is_default, disabled, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.OwnerID,
		w.Currency,
		w.Balance,
		w.IsDefault,
		w.Disabled,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return wallet.ErrDuplicateDefault{OwnerID: w.OwnerID, Currency: w.Currency}
		}
		r.logger.Error("Failed to create wallet", "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByID retrieves a wallet by its ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT id, owner_id, currency, balance, is_default, disabled, version, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.OwnerID,
		&w.Currency,
		&w.Balance,
		&w.IsDefault,
		&w.Disabled,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to get wallet", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

// GetDefaultForOwner retrieves the owner's default wallet for the given currency.
// Returns nil, nil when the owner has no default wallet in that currency.
func (r *WalletRepository) GetDefaultForOwner(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error) {
	query := `
		SELECT id, owner_id, currency, balance, is_default, disabled, version, created_at, updated_at
		FROM wallets
		WHERE owner_id = $1 AND currency = $2 AND is_default = TRUE
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, ownerID, currency).Scan(
		&w.ID,
		&w.OwnerID,
		&w.Currency,
		&w.Balance,
		&w.IsDefault,
		&w.Disabled,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get default wallet", "owner_id", ownerID.String(), "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to get default wallet: %w", err)
	}

	return &w, nil
}

// ListByOwner retrieves all wallets belonging to the given owner
func (r *WalletRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*wallet.Wallet, error) {
	query := `
		SELECT id, owner_id, currency, balance, is_default, disabled, version, created_at, updated_at
		FROM wallets
		WHERE owner_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list wallets", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*wallet.Wallet
	for rows.Next() {
		var w wallet.Wallet
		if err := rows.Scan(
			&w.ID,
			&w.OwnerID,
			&w.Currency,
			&w.Balance,
			&w.IsDefault,
			&w.Disabled,
			&w.Version,
			&w.CreatedAt,
			&w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wallet row: %w", err)
		}
		wallets = append(wallets, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallet rows: %w", err)
	}

	return wallets, nil
}

// Update updates an existing wallet in the database using optimistic locking
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET currency = $1, balance = $2, is_default = $3, disabled = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		w.Currency,
		w.Balance,
		w.IsDefault,
		w.Disabled,
		w.Version,
		w.UpdatedAt,
		w.ID,
		w.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: w.ID}
	}

	return nil
}

// AdjustBalance atomically applies a signed delta to the wallet balance using
// optimistic locking. The CHECK (balance >= 0) constraint rejects overdrafts,
// surfaced as wallet.ErrInsufficientFunds. Returns ErrConcurrentModification
// if the wallet was modified between read and update.
func (r *WalletRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal, version int) error {
	query := `
		UPDATE wallets
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, delta, id, version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return wallet.ErrInsufficientFunds
		}
		r.logger.Error("Failed to adjust wallet balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to adjust wallet balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the wallet and returns its current state.
// This should be used within a transaction when strong consistency is required.
func (r *WalletRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT id, owner_id, currency, balance, is_default, disabled, version, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.OwnerID,
		&w.Currency,
		&w.Balance,
		&w.IsDefault,
		&w.Disabled,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to lock wallet for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}

	return &w, nil
}

// Disable marks a wallet as disabled, blocking further debits and credits
func (r *WalletRepository) Disable(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE wallets
		SET disabled = TRUE, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to disable wallet", "id", id.String(), "error", err)
		return fmt.Errorf("failed to disable wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrWalletNotFound{WalletID: id}
	}

	return nil
}
