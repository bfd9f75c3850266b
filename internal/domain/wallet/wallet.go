package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrCurrencyMismatch      = errors.New("currency mismatch")
	ErrWalletDisabled        = errors.New("wallet is disabled")
	ErrEmptyOwner            = errors.New("owner cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3 to 5 letter code")
)

// Wallet is a per-owner, per-currency balance account. The balance is the sum
// of the effects of all COMPLETED ledger transactions referencing this wallet
// and never goes negative.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"is_default"`
	Disabled  bool            `json:"disabled"`
	Version   int             `json:"version"` // For optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet creates a zero-balance wallet for an owner in the given currency
func NewWallet(ownerID uuid.UUID, currency string, isDefault bool) (*Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwner
	}
	if !validCurrency(currency) {
		return nil, ErrInvalidCurrencyFormat
	}

	now := time.Now()
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   decimal.Zero,
		IsDefault: isDefault,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validCurrency(currency string) bool {
	if len(currency) < 3 || len(currency) > 5 {
		return false
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Credit adds the specified amount to the wallet balance
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if w.Disabled {
		return ErrWalletDisabled
	}

	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now()
	w.Version++
	return nil
}

// Debit subtracts the specified amount from the wallet balance
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if w.Disabled {
		return ErrWalletDisabled
	}
	if !w.CanDebit(amount) {
		return ErrInsufficientFunds
	}

	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = time.Now()
	w.Version++
	return nil
}

// CanDebit checks whether the wallet holds at least the given amount
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
