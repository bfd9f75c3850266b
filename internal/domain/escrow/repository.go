package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines escrow hold persistence. The stored hold status is the
// single authority for resolution: Resolve flips HELD to a terminal state
// with a guarded update, so a hold can be resolved exactly once.
type Repository interface {
	Create(ctx context.Context, hold *Hold) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hold, error)

	// GetByContract returns the hold for a contract/milestone pair, nil when
	// none exists. A nil milestoneID addresses the contract-level hold.
	GetByContract(ctx context.Context, contractID uuid.UUID, milestoneID *uuid.UUID) (*Hold, error)
	ListByFunderWallet(ctx context.Context, funderWalletID uuid.UUID, limit, offset int) ([]*Hold, error)

	// Resolve transitions the hold from HELD to the given terminal status,
	// recording the terminal ledger transaction. Returns ErrAlreadyResolved
	// when the hold has already left HELD.
	Resolve(ctx context.Context, id uuid.UUID, status HoldStatus, releaseTransactionID uuid.UUID, resolvedAt time.Time) error
	WithTx(tx pgx.Tx) Repository
}

// ErrHoldNotFound indicates missing escrow hold
type ErrHoldNotFound struct {
	HoldID uuid.UUID
}

func (e ErrHoldNotFound) Error() string {
	return "escrow hold not found: " + e.HoldID.String()
}

// Is matches any ErrHoldNotFound when the target carries a nil id
func (e ErrHoldNotFound) Is(target error) bool {
	t, ok := target.(ErrHoldNotFound)
	if !ok {
		return false
	}
	return t.HoldID == uuid.Nil || e.HoldID == t.HoldID
}

// ErrAlreadyResolved indicates the hold has already been released or
// refunded. Duplicate calls that match the stored terminal state are
// absorbed by the caller; conflicting calls surface this error.
type ErrAlreadyResolved struct {
	HoldID uuid.UUID
	Status HoldStatus
}

func (e ErrAlreadyResolved) Error() string {
	return "escrow hold " + e.HoldID.String() + " already resolved: " + string(e.Status)
}

// Is matches any ErrAlreadyResolved when the target carries a nil id
func (e ErrAlreadyResolved) Is(target error) bool {
	t, ok := target.(ErrAlreadyResolved)
	if !ok {
		return false
	}
	return t.HoldID == uuid.Nil || e.HoldID == t.HoldID
}

// ErrDuplicateHold indicates a hold already exists for the contract/milestone
type ErrDuplicateHold struct {
	ContractID  uuid.UUID
	MilestoneID *uuid.UUID
}

func (e ErrDuplicateHold) Error() string {
	msg := "escrow hold already exists for contract " + e.ContractID.String()
	if e.MilestoneID != nil {
		msg += " milestone " + e.MilestoneID.String()
	}
	return msg
}
