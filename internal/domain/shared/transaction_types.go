package shared

// TransactionType defines the balance-affecting event kinds recorded in the ledger
type TransactionType string

const (
	TransactionTypeDeposit       TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionTypePayment       TransactionType = "PAYMENT"
	TransactionTypeRefund        TransactionType = "REFUND"
	TransactionTypeFee           TransactionType = "FEE"
	TransactionTypeEscrowHold    TransactionType = "ESCROW_HOLD"
	TransactionTypeEscrowRelease TransactionType = "ESCROW_RELEASE"
	TransactionTypeEscrowRefund  TransactionType = "ESCROW_REFUND"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypePayment,
		TransactionTypeRefund, TransactionTypeFee, TransactionTypeEscrowHold,
		TransactionTypeEscrowRelease, TransactionTypeEscrowRefund:
		return true
	}
	return false
}

// TransactionStatus defines transaction lifecycle states
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// Terminal reports whether s is a final state. Terminal transactions are
// frozen: no transition may leave a terminal state.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// CanTransition reports whether the lifecycle permits moving between two
// statuses. The lifecycle only moves forward:
// PENDING -> PROCESSING -> {COMPLETED | FAILED}, with CANCELLED reachable
// from PENDING only.
func CanTransition(from, to TransactionStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case TransactionStatusProcessing:
		return from == TransactionStatusPending
	case TransactionStatusCompleted, TransactionStatusFailed:
		return from == TransactionStatusPending || from == TransactionStatusProcessing
	case TransactionStatusCancelled:
		return from == TransactionStatusPending
	}
	return false
}

// Predecessors returns the statuses from which a transition to the given
// status is legal. The ledger repository uses this to build guarded updates
// so that a terminal transaction is never re-opened.
func Predecessors(to TransactionStatus) []TransactionStatus {
	switch to {
	case TransactionStatusProcessing, TransactionStatusCancelled:
		return []TransactionStatus{TransactionStatusPending}
	case TransactionStatusCompleted, TransactionStatusFailed:
		return []TransactionStatus{TransactionStatusPending, TransactionStatusProcessing}
	}
	return nil
}

// FailureReason defines settlement failure categories
type FailureReason string

const (
	FailureReasonWalletNotFound         FailureReason = "WALLET_NOT_FOUND"
	FailureReasonWalletDisabled         FailureReason = "WALLET_DISABLED"
	FailureReasonCurrencyMismatchFormat FailureReason = "CURRENCY_MISMATCH:_REQUEST_%s_WALLET_%s" // To be used with fmt.Sprintf
	FailureReasonInsufficientFunds      FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonInvalidAmount          FailureReason = "INVALID_AMOUNT"
	FailureReasonAlreadyResolved        FailureReason = "ESCROW_ALREADY_RESOLVED"
	FailureReasonConcurrentModification FailureReason = "CONCURRENT_MODIFICATION"
	FailureReasonPublishFailed          FailureReason = "PUBLISH_FAILED"
	FailureReasonSettlementFailed       FailureReason = "SETTLEMENT_FAILED"
	FailureReasonUnknownError           FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines wallet event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
