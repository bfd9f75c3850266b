package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidCurrency        = errors.New("invalid currency")
)

// SettlementRequest defines a Kafka message asking the settlement processor
// to apply a deposit or withdrawal against a wallet. Fee and NetAmount are
// computed by the gateway at request time and carried through so the ledger
// record and the balance effect always agree.
type SettlementRequest struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Fee            decimal.Decimal `json:"fee"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	Currency       string          `json:"currency"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CorrelationID  string          `json:"correlation_id"`
	Timestamp      time.Time       `json:"timestamp"`
}
