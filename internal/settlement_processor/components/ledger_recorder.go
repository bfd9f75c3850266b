package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/settlement_processor/service"
)

type LedgerRecorderImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewLedgerRecorder(ledgerRepo ledger.Repository, logger *slog.Logger) service.LedgerRecorder {
	return &LedgerRecorderImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// MarkProcessing claims the transaction for settlement with a guarded
// PENDING->PROCESSING update. Returns false when the transaction has been
// cancelled or otherwise left PENDING, which means the request must be
// dropped without a balance effect.
func (r *LedgerRecorderImpl) MarkProcessing(ctx context.Context, request *shared.SettlementRequest) (bool, error) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	err := r.ledgerRepo.UpdateStatus(ctx, request.TransactionID, shared.TransactionStatusProcessing, "")
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition{}) {
			logger.Info("Transaction not claimable for settlement",
				"transaction_id", request.TransactionID.String(),
				"error", err,
			)
			return false, nil
		}
		logger.Error("Failed to mark transaction as processing", "transaction_id", request.TransactionID.String(), "error", err)
		return false, err
	}

	return true, nil
}

// MarkCompleted records the terminal COMPLETED status. Failures are logged
// only: the outbox poller re-applies terminal statuses when it publishes the
// wallet event, so the ledger converges.
func (r *LedgerRecorderImpl) MarkCompleted(ctx context.Context, request *shared.SettlementRequest) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	if err := r.ledgerRepo.UpdateStatus(ctx, request.TransactionID, shared.TransactionStatusCompleted, ""); err != nil {
		logger.Error("Failed to mark transaction as completed, deferring to outbox poller",
			"transaction_id", request.TransactionID.String(),
			"error", err,
		)
	}
}

// RecordFailure records a failed settlement in the ledger
func (r *LedgerRecorderImpl) RecordFailure(ctx context.Context, request *shared.SettlementRequest, failureReason string) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Recording failed settlement", "transaction_id", request.TransactionID.String(), "reason", failureReason)

	existing, err := r.ledgerRepo.GetByTransactionID(ctx, request.TransactionID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound{}) {
		logger.Error("Failed to get existing ledger transaction for failed settlement", "transaction_id", request.TransactionID.String(), "error", err)
	}

	if existing != nil {
		if existing.Status == shared.TransactionStatusFailed {
			logger.Info("Ledger transaction already marked as FAILED", "transaction_id", request.TransactionID.String())
			return nil
		}
		if updateErr := r.ledgerRepo.UpdateStatus(ctx, request.TransactionID, shared.TransactionStatusFailed, failureReason); updateErr != nil {
			logger.Error("Failed to update ledger transaction to FAILED", "transaction_id", request.TransactionID.String(), "error", updateErr)
			return updateErr
		}
		return nil
	}

	// The gateway writes the ledger record before publishing, but a lost
	// write still gets a durable FAILED record here.
	now := time.Now()
	tx := &ledger.Transaction{
		TransactionID:  request.TransactionID,
		WalletID:       request.WalletID,
		Type:           request.Type,
		Amount:         request.Amount,
		Fee:            request.Fee,
		NetAmount:      request.NetAmount,
		Currency:       request.Currency,
		IdempotencyKey: request.IdempotencyKey,
		CorrelationID:  request.CorrelationID,
		Status:         shared.TransactionStatusFailed,
		FailureReason:  failureReason,
		CreatedAt:      request.Timestamp,
		CompletedAt:    &now,
	}

	if createErr := r.ledgerRepo.Create(ctx, tx); createErr != nil {
		logger.Error("Failed to create FAILED ledger transaction", "transaction_id", request.TransactionID.String(), "error", createErr)
		return createErr
	}
	return nil
}
