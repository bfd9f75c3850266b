package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

// ProcessingService defines the interface for settling deposit and
// withdrawal requests against the wallet store.
type ProcessingService interface {
	ProcessSettlement(ctx context.Context, request *shared.SettlementRequest) error
}

// SettlementValidator validates settlement requests before processing
type SettlementValidator interface {
	Validate(ctx context.Context, request *shared.SettlementRequest) error

	// CheckIdempotency reports whether the request was already settled, either
	// by a terminal ledger record or by an existing outbox row proving the
	// balance effect committed.
	CheckIdempotency(ctx context.Context, request *shared.SettlementRequest) (bool, error)
}

// WalletManager applies the balance effect of a settlement request under a
// row lock
type WalletManager interface {
	LockAndAdjustWallet(ctx context.Context, tx pgx.Tx, request *shared.SettlementRequest) (*wallet.Wallet, error)
}

// OutboxManager records the settled transaction for event publishing, inside
// the same database transaction as the balance change
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.SettlementRequest) error
}

// LedgerRecorder moves the ledger record through its lifecycle as settlement
// progresses
type LedgerRecorder interface {
	// MarkProcessing claims the transaction with a guarded PENDING->PROCESSING
	// transition. Returns false when the transaction cannot be claimed (for
	// example, cancelled before settlement).
	MarkProcessing(ctx context.Context, request *shared.SettlementRequest) (bool, error)
	MarkCompleted(ctx context.Context, request *shared.SettlementRequest)
	RecordFailure(ctx context.Context, request *shared.SettlementRequest, failureReason string) error
}
