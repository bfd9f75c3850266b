package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/domain/escrow"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

// WalletService defines the interface for wallet operations
type WalletService interface {
	// CreateWallet creates a new zero-balance wallet for the caller.
	// Returns ErrDuplicateDefault if a default wallet already exists for the
	// owner and currency.
	CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string, isDefault bool) (*wallet.Wallet, error)

	// GetWallet retrieves a wallet by ID, enforcing ownership.
	// Returns ErrWalletNotFound or ErrUnauthorized on mismatch.
	GetWallet(ctx context.Context, callerID, walletID uuid.UUID) (*wallet.Wallet, error)

	// ListWallets retrieves all wallets owned by the caller
	ListWallets(ctx context.Context, ownerID uuid.UUID) ([]*wallet.Wallet, error)

	// Deposit opens a deposit ledger transaction and publishes a settlement
	// request. The returned bool is true when an existing transaction was
	// found via the idempotency key and no new request was published.
	Deposit(ctx context.Context, callerID, walletID uuid.UUID, amount decimal.Decimal, currency, idempotencyKey, correlationID string) (*ledger.Transaction, bool, error)

	// Withdraw mirrors Deposit for withdrawals, with an available-funds
	// pre-check before the request is published.
	Withdraw(ctx context.Context, callerID, walletID uuid.UUID, amount decimal.Decimal, currency, idempotencyKey, correlationID string) (*ledger.Transaction, bool, error)
}

// CreateHoldParams carries the inputs for opening an escrow hold
type CreateHoldParams struct {
	ContractID        uuid.UUID
	MilestoneID       *uuid.UUID
	FunderWalletID    uuid.UUID
	ReceiverProfileID uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	CorrelationID     string
}

// EscrowService defines the interface for escrow hold operations. All
// operations settle synchronously and atomically against the wallet store.
type EscrowService interface {
	// CreateHold debits the funder wallet and opens a hold in one atomic unit.
	// On any failure the wallet is untouched and the hold ledger transaction
	// is marked FAILED.
	CreateHold(ctx context.Context, callerID uuid.UUID, params CreateHoldParams) (*escrow.Hold, error)

	// Release credits the held amount to the receiver's default wallet and
	// flips the hold to RELEASED. Releasing an already-released hold returns
	// the stored record unchanged; releasing a refunded hold returns
	// ErrAlreadyResolved.
	Release(ctx context.Context, callerID, holdID uuid.UUID) (*escrow.Hold, error)

	// Refund returns the held amount to the funder wallet and flips the hold
	// to REFUNDED, with the same idempotency rules as Release.
	Refund(ctx context.Context, callerID, holdID uuid.UUID) (*escrow.Hold, error)

	// GetHold retrieves a hold by ID, enforcing funder wallet ownership
	GetHold(ctx context.Context, callerID, holdID uuid.UUID) (*escrow.Hold, error)

	// ListHolds retrieves paginated holds funded from the given wallet
	ListHolds(ctx context.Context, callerID, walletID uuid.UUID, page, perPage int) ([]*escrow.Hold, error)
}

// TransactionService defines the interface for ledger transaction queries
// and cancellation
type TransactionService interface {
	// GetTransactionByID retrieves a transaction by its ID, enforcing wallet
	// ownership. Returns nil if the transaction is not found.
	GetTransactionByID(ctx context.Context, callerID, transactionID uuid.UUID) (*ledger.Transaction, error)

	// GetTransactionsByWalletID retrieves a paginated, optionally filtered
	// list of transactions for a wallet.
	// Returns transactions, total count, and any error.
	GetTransactionsByWalletID(ctx context.Context, callerID, walletID uuid.UUID, filter ledger.ListFilter, page, perPage int) ([]*ledger.Transaction, int64, error)

	// CancelTransaction cancels a PENDING transaction before settlement.
	// Returns ErrInvalidTransition once the transaction has left PENDING.
	CancelTransaction(ctx context.Context, callerID, transactionID uuid.UUID) (*ledger.Transaction, error)
}
