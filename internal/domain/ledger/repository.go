package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

// ListFilter narrows GetByWalletID results. Zero values match everything.
type ListFilter struct {
	Type   shared.TransactionType
	Status shared.TransactionStatus
}

// Repository manages ledger transaction persistence. The ledger is append
// oriented: amount, fee and type are never mutated after creation, and
// UpdateStatus refuses transitions out of terminal states.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Transaction, error)
	GetByRelatedTransactionID(ctx context.Context, relatedID uuid.UUID) ([]*Transaction, error)
	GetByWalletID(ctx context.Context, walletID uuid.UUID, filter ListFilter, limit, offset int) ([]*Transaction, error)
	CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, transactionID uuid.UUID, status shared.TransactionStatus, reason string) error
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Transaction, error)
}

// ErrTransactionNotFound indicates missing ledger transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "ledger transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface; a target with a nil id matches any
// ErrTransactionNotFound.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}

// ErrDuplicateTransaction indicates transaction uniqueness violation
type ErrDuplicateTransaction struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate ledger transaction: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateTransaction
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}

// ErrInvalidTransition indicates an attempt to move a transaction backwards
// or out of a terminal status.
type ErrInvalidTransition struct {
	TransactionID uuid.UUID
	From          shared.TransactionStatus
	To            shared.TransactionStatus
}

func (e ErrInvalidTransition) Error() string {
	return "invalid status transition for transaction " + e.TransactionID.String() +
		": " + string(e.From) + " -> " + string(e.To)
}

// Is matches any ErrInvalidTransition when the target carries a nil id
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}
