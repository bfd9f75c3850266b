package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

// Message stores a completed balance effect for reliable event publishing.
// A message is written in the same database transaction as the balance
// change, so its existence proves the effect was applied.
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	WalletID      uuid.UUID           `json:"wallet_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a ledger transaction as a pending wallet event
func NewMessage(tx *ledger.Transaction) (*Message, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: tx.TransactionID,
		WalletID:      tx.WalletID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetTransaction extracts the ledger transaction from the payload
func (m *Message) GetTransaction() (*ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := json.Unmarshal(m.Payload, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
