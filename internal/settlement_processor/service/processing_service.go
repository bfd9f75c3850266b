package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
	"github.com/marketplace-wallet-ledger/internal/platform/persistence"
)

// txBeginner abstracts pgxpool.Pool so settlement logic can be exercised
// against a mocked transaction.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ProcessingServiceImpl struct {
	pool           txBeginner
	validator      SettlementValidator
	walletManager  WalletManager
	outboxManager  OutboxManager
	ledgerRecorder LedgerRecorder
	logger         *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	validator SettlementValidator,
	walletManager WalletManager,
	outboxManager OutboxManager,
	ledgerRecorder LedgerRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pool:           pgDB.Pool(),
		validator:      validator,
		walletManager:  walletManager,
		outboxManager:  outboxManager,
		ledgerRecorder: ledgerRecorder,
		logger:         logger,
	}
}

// ProcessSettlement handles the core logic for settling a deposit or
// withdrawal. Returning nil acknowledges the Kafka message; returning an
// error leaves the offset uncommitted for redelivery.
func (s *ProcessingServiceImpl) ProcessSettlement(ctx context.Context, request *shared.SettlementRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing settlement request", "transaction_id", request.TransactionID.String(), "wallet_id", request.WalletID.String())

	// 1. Validate the settlement request
	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Error("Settlement validation failed", "transaction_id", request.TransactionID.String(), "error", err)

		var failureReason string
		if errors.Is(err, shared.ErrInvalidTransactionType) {
			failureReason = string(shared.FailureReasonUnknownError)
		} else {
			failureReason = string(shared.FailureReasonInvalidAmount)
		}

		if recordErr := s.ledgerRecorder.RecordFailure(ctx, request, failureReason); recordErr != nil {
			logger.Error("Failed to record settlement failure", "transaction_id", request.TransactionID.String(), "error", recordErr)
		}

		return nil // Acknowledge the message; the request can never succeed
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		return err // Let Kafka retry
	}
	if skip {
		return nil // Already settled
	}

	// 3. Claim the transaction. A transaction cancelled while the request was
	// in flight cannot be claimed and is dropped with no balance effect.
	claimed, err := s.ledgerRecorder.MarkProcessing(ctx, request)
	if err != nil {
		return err // Let Kafka retry
	}
	if !claimed {
		logger.Info("Settlement request dropped, transaction no longer claimable",
			"transaction_id", request.TransactionID.String())
		return nil
	}

	// 4. Begin database transaction
	var tx pgx.Tx
	tx, err = s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "transaction_id", request.TransactionID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for %s: %w", request.TransactionID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "transaction_id", request.TransactionID.String())
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "transaction_id", request.TransactionID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "transaction_id", request.TransactionID.String())
			}
		}
	}()

	// 5. Lock the wallet and apply the balance effect
	_, err = s.walletManager.LockAndAdjustWallet(ctx, tx, request)
	if err != nil {
		if reason, terminal := settlementFailureReason(request, err); terminal {
			if recordErr := s.ledgerRecorder.RecordFailure(ctx, request, reason); recordErr != nil {
				logger.Error("Failed to record settlement failure", "transaction_id", request.TransactionID.String(), "error", recordErr)
			}
			// err stays set so the deferred rollback runs; the message is
			// still acknowledged because the failure is permanent.
			return nil
		}
		// Infrastructure errors propagate for redelivery
		return err
	}

	// 6. Create outbox entry proving the effect committed
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, request); err != nil {
		if errors.Is(err, outbox.ErrDuplicateMessage{}) {
			// A previous delivery already applied this settlement; the unique
			// index stops the double apply and the rollback undoes this one.
			logger.Info("Settlement already recorded in outbox, dropping duplicate",
				"transaction_id", request.TransactionID.String())
			return nil
		}
		return err
	}

	// 7. Commit
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"transaction_id", request.TransactionID.String(),
			"wallet_id", request.WalletID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to commit DB transaction for tx %s: %w", request.TransactionID.String(), err)
	}

	// 8. Record the terminal status. If this fails the outbox poller applies
	// it when publishing the wallet event.
	s.ledgerRecorder.MarkCompleted(ctx, request)

	logger.Info("Settlement committed",
		"transaction_id", request.TransactionID.String(),
		"wallet_id", request.WalletID.String(),
		"type", string(request.Type),
	)
	return nil
}

// settlementFailureReason maps a business failure to its ledger failure
// reason. The second return is false for infrastructure errors that should
// be retried instead of recorded.
func settlementFailureReason(request *shared.SettlementRequest, err error) (string, bool) {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound{}):
		return string(shared.FailureReasonWalletNotFound), true
	case errors.Is(err, wallet.ErrWalletDisabled):
		return string(shared.FailureReasonWalletDisabled), true
	case errors.Is(err, shared.ErrInvalidCurrency):
		return fmt.Sprintf(string(shared.FailureReasonCurrencyMismatchFormat), request.Currency, "wallet_currency"), true
	case errors.Is(err, wallet.ErrInvalidAmount):
		return string(shared.FailureReasonInvalidAmount), true
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return string(shared.FailureReasonInsufficientFunds), true
	}
	return "", false
}
