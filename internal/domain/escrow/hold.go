package escrow

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("escrow amount must be positive")
	ErrEmptyContract = errors.New("contract id cannot be empty")
	ErrEmptyReceiver = errors.New("receiver profile id cannot be empty")
)

// HoldStatus defines the escrow state machine:
// HELD -> RELEASED | REFUNDED, both terminal.
type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "HELD"
	HoldStatusReleased HoldStatus = "RELEASED"
	HoldStatusRefunded HoldStatus = "REFUNDED"
)

// Terminal reports whether the status is final
func (s HoldStatus) Terminal() bool {
	return s == HoldStatusReleased || s == HoldStatusRefunded
}

// Hold represents funds debited from a funder wallet and held pending release
// to the receiver or refund back to the funder. Exactly one escrow_hold
// ledger transaction exists per hold, and exactly one terminal transaction
// once the status leaves HELD.
type Hold struct {
	ID                   uuid.UUID       `json:"id"`
	ContractID           uuid.UUID       `json:"contract_id"`
	MilestoneID          *uuid.UUID      `json:"milestone_id,omitempty"` // nil means a contract-level hold
	FunderWalletID       uuid.UUID       `json:"funder_wallet_id"`
	ReceiverProfileID    uuid.UUID       `json:"receiver_profile_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	HoldTransactionID    uuid.UUID       `json:"hold_transaction_id"`
	ReleaseTransactionID *uuid.UUID      `json:"release_transaction_id,omitempty"`
	Status               HoldStatus      `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	ResolvedAt           *time.Time      `json:"resolved_at,omitempty"`
}

// NewHold creates a hold in HELD status tied to the ledger transaction that
// debited the funder wallet.
func NewHold(contractID uuid.UUID, milestoneID *uuid.UUID, funderWalletID, receiverProfileID uuid.UUID, amount decimal.Decimal, currency string, holdTransactionID uuid.UUID) (*Hold, error) {
	if contractID == uuid.Nil {
		return nil, ErrEmptyContract
	}
	if receiverProfileID == uuid.Nil {
		return nil, ErrEmptyReceiver
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &Hold{
		ID:                uuid.New(),
		ContractID:        contractID,
		MilestoneID:       milestoneID,
		FunderWalletID:    funderWalletID,
		ReceiverProfileID: receiverProfileID,
		Amount:            amount,
		Currency:          currency,
		HoldTransactionID: holdTransactionID,
		Status:            HoldStatusHeld,
		CreatedAt:         time.Now(),
	}, nil
}

// Resolved reports whether the hold has left the HELD state
func (h *Hold) Resolved() bool {
	return h.Status.Terminal()
}
