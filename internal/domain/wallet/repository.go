package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines wallet persistence operations. All balance writes go
// through AdjustBalance or a locked Update; nothing else may touch balance.
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// GetDefaultForOwner returns the owner's default wallet for a currency,
	// or nil if the owner has no wallet in that currency.
	GetDefaultForOwner(ctx context.Context, ownerID uuid.UUID, currency string) (*Wallet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Wallet, error)
	Update(ctx context.Context, w *Wallet) error

	// AdjustBalance applies balance += delta using optimistic locking against
	// the supplied version. Returns ErrConcurrentModification when the stored
	// version has moved, ErrInsufficientFunds when the result would be
	// negative.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal, version int) error

	// LockForUpdate acquires a row lock for settlement processing. Must be
	// called within a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// Disable soft-disables a wallet. Wallets are never hard-deleted while
	// ledger transactions reference them.
	Disable(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure; the caller
// should reload the wallet and retry.
type ErrConcurrentModification struct {
	WalletID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.WalletID.String()
}

// Is matches any ErrConcurrentModification when the target carries a nil id
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.WalletID == uuid.Nil || e.WalletID == t.WalletID
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	WalletID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found: " + e.WalletID.String()
}

// Is matches any ErrWalletNotFound when the target carries a nil id
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	return t.WalletID == uuid.Nil || e.WalletID == t.WalletID
}

// ErrDuplicateDefault indicates a second default wallet for the same
// owner+currency pair
type ErrDuplicateDefault struct {
	OwnerID  uuid.UUID
	Currency string
}

func (e ErrDuplicateDefault) Error() string {
	return "default wallet already exists for owner " + e.OwnerID.String() + " in " + e.Currency
}

// ErrUnauthorized indicates a wallet ownership mismatch
type ErrUnauthorized struct {
	WalletID uuid.UUID
	CallerID uuid.UUID
}

func (e ErrUnauthorized) Error() string {
	return "caller " + e.CallerID.String() + " does not own wallet " + e.WalletID.String()
}

// Is matches any ErrUnauthorized regardless of ids
func (e ErrUnauthorized) Is(target error) bool {
	_, ok := target.(ErrUnauthorized)
	return ok
}
