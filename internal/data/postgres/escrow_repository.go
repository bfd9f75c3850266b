package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marketplace-wallet-ledger/internal/domain/escrow"
	"github.com/marketplace-wallet-ledger/internal/platform/persistence"
)

// EscrowRepository implements the escrow.Repository interface for PostgreSQL
type EscrowRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEscrowRepository creates a new PostgreSQL escrow hold repository
func NewEscrowRepository(logger *slog.Logger, db *persistence.PostgresDB) escrow.Repository {
	return &EscrowRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so hold creation and wallet
// debits commit or roll back together.
func (r *EscrowRepository) WithTx(tx pgx.Tx) escrow.Repository {
	return &EscrowRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new escrow hold. A unique index on (contract_id, milestone_id)
// rejects a second active hold for the same contract/milestone pair.
func (r *EscrowRepository) Create(ctx context.Context, hold *escrow.Hold) error {
	query := `
		INSERT INTO escrow_holds (id, contract_id, milestone_id, funder_wallet_id, receiver_profile_id,
			amount, currency, hold_transaction_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		hold.ID,
		hold.ContractID,
		hold.MilestoneID,
		hold.FunderWalletID,
		hold.ReceiverProfileID,
		hold.Amount,
		hold.Currency,
		hold.HoldTransactionID,
		hold.Status,
		hold.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return escrow.ErrDuplicateHold{ContractID: hold.ContractID, MilestoneID: hold.MilestoneID}
		}
		r.logger.Error("Failed to create escrow hold", "error", err)
		return fmt.Errorf("failed to create escrow hold: %w", err)
	}

	return nil
}

// GetByID retrieves an escrow hold by its ID
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*escrow.Hold, error) {
	query := `
		SELECT id, contract_id, milestone_id, funder_wallet_id, receiver_profile_id,
			amount, currency, hold_transaction_id, release_transaction_id, status, created_at, resolved_at
		FROM escrow_holds
		WHERE id = $1
	`

	hold, err := r.scanHold(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrHoldNotFound{HoldID: id}
		}
		r.logger.Error("Failed to get escrow hold", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get escrow hold: %w", err)
	}

	return hold, nil
}

// GetByContract retrieves the hold for a contract/milestone pair.
// Returns nil, nil when no hold exists for the pair.
func (r *EscrowRepository) GetByContract(ctx context.Context, contractID uuid.UUID, milestoneID *uuid.UUID) (*escrow.Hold, error) {
	// IS NOT DISTINCT FROM matches NULL milestone ids for contract-level holds
	query := `
		SELECT id, contract_id, milestone_id, funder_wallet_id, receiver_profile_id,
			amount, currency, hold_transaction_id, release_transaction_id, status, created_at, resolved_at
		FROM escrow_holds
		WHERE contract_id = $1 AND milestone_id IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	hold, err := r.scanHold(r.querier.QueryRow(ctx, query, contractID, milestoneID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get escrow hold by contract", "contract_id", contractID.String(), "error", err)
		return nil, fmt.Errorf("failed to get escrow hold by contract: %w", err)
	}

	return hold, nil
}

// ListByFunderWallet retrieves holds funded from the given wallet, newest first
func (r *EscrowRepository) ListByFunderWallet(ctx context.Context, funderWalletID uuid.UUID, limit, offset int) ([]*escrow.Hold, error) {
	query := `
		SELECT id, contract_id, milestone_id, funder_wallet_id, receiver_profile_id,
			amount, currency, hold_transaction_id, release_transaction_id, status, created_at, resolved_at
		FROM escrow_holds
		WHERE funder_wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, funderWalletID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list escrow holds", "funder_wallet_id", funderWalletID.String(), "error", err)
		return nil, fmt.Errorf("failed to list escrow holds: %w", err)
	}
	defer rows.Close()

	var holds []*escrow.Hold
	for rows.Next() {
		hold, err := r.scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escrow hold row: %w", err)
		}
		holds = append(holds, hold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate escrow hold rows: %w", err)
	}

	return holds, nil
}

// Resolve transitions a hold from HELD to the given terminal status. The
// status guard in the WHERE clause makes resolution exactly-once: a second
// resolution attempt matches no row and surfaces ErrAlreadyResolved with the
// stored terminal state.
func (r *EscrowRepository) Resolve(ctx context.Context, id uuid.UUID, status escrow.HoldStatus, releaseTransactionID uuid.UUID, resolvedAt time.Time) error {
	query := `
		UPDATE escrow_holds
		SET status = $1, release_transaction_id = $2, resolved_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.querier.Exec(ctx, query, status, releaseTransactionID, resolvedAt, id, escrow.HoldStatusHeld)
	if err != nil {
		r.logger.Error("Failed to resolve escrow hold", "id", id.String(), "error", err)
		return fmt.Errorf("failed to resolve escrow hold: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return escrow.ErrAlreadyResolved{HoldID: id, Status: existing.Status}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EscrowRepository) scanHold(row rowScanner) (*escrow.Hold, error) {
	var hold escrow.Hold
	err := row.Scan(
		&hold.ID,
		&hold.ContractID,
		&hold.MilestoneID,
		&hold.FunderWalletID,
		&hold.ReceiverProfileID,
		&hold.Amount,
		&hold.Currency,
		&hold.HoldTransactionID,
		&hold.ReleaseTransactionID,
		&hold.Status,
		&hold.CreatedAt,
		&hold.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &hold, nil
}
