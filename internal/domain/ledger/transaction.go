package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidFee    = errors.New("fee must be non-negative and not exceed amount")
)

// Transaction is an immutable-once-terminal record of a balance-affecting
// event. Amount, Fee and Type never change after creation; only the status
// and terminal timestamps do.
type Transaction struct {
	TransactionID        uuid.UUID                `json:"transaction_id"`
	WalletID             uuid.UUID                `json:"wallet_id"`
	Type                 shared.TransactionType   `json:"type"`
	Amount               decimal.Decimal          `json:"amount"`
	Fee                  decimal.Decimal          `json:"fee"`
	NetAmount            decimal.Decimal          `json:"net_amount"`
	Currency             string                   `json:"currency"`
	Status               shared.TransactionStatus `json:"status"`
	RelatedTransactionID *uuid.UUID               `json:"related_transaction_id,omitempty"`
	Description          string                   `json:"description,omitempty"`
	IdempotencyKey       string                   `json:"idempotency_key,omitempty"`
	CorrelationID        string                   `json:"correlation_id,omitempty"`
	FailureReason        string                   `json:"failure_reason,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
	CompletedAt          *time.Time               `json:"completed_at,omitempty"`
}

// NewTransaction opens a ledger transaction in PENDING status. NetAmount is
// derived as amount - fee and held invariant from then on.
func NewTransaction(txType shared.TransactionType, walletID uuid.UUID, amount, fee decimal.Decimal, currency string) (*Transaction, error) {
	if !txType.Valid() {
		return nil, shared.ErrInvalidTransactionType
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if fee.IsNegative() || fee.GreaterThan(amount) {
		return nil, ErrInvalidFee
	}

	return &Transaction{
		TransactionID: uuid.New(),
		WalletID:      walletID,
		Type:          txType,
		Amount:        amount,
		Fee:           fee,
		NetAmount:     amount.Sub(fee),
		Currency:      currency,
		Status:        shared.TransactionStatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

// SignedEffect returns the transaction's contribution to its wallet balance
// once completed: credits are positive, debits negative. Deposits credit the
// net amount (the fee is retained by the platform); withdrawals and escrow
// holds debit the full amount.
func (t *Transaction) SignedEffect() decimal.Decimal {
	switch t.Type {
	case shared.TransactionTypeDeposit, shared.TransactionTypeRefund,
		shared.TransactionTypeEscrowRelease, shared.TransactionTypeEscrowRefund:
		return t.NetAmount
	case shared.TransactionTypeWithdrawal, shared.TransactionTypePayment,
		shared.TransactionTypeFee, shared.TransactionTypeEscrowHold:
		return t.Amount.Neg()
	}
	return decimal.Zero
}
