package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/settlement_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry records the settled transaction for the wallet events
// publisher. It runs in the same database transaction as the balance
// adjustment, and its unique transaction_id index doubles as the final guard
// against applying the same settlement twice.
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.SettlementRequest) error {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	outboxRepoTx := m.outboxRepo.WithTx(tx)

	now := time.Now()
	settled := &ledger.Transaction{
		TransactionID:  request.TransactionID,
		WalletID:       request.WalletID,
		Type:           request.Type,
		Amount:         request.Amount,
		Fee:            request.Fee,
		NetAmount:      request.NetAmount,
		Currency:       request.Currency,
		IdempotencyKey: request.IdempotencyKey,
		CorrelationID:  request.CorrelationID,
		Status:         shared.TransactionStatusCompleted,
		CreatedAt:      request.Timestamp,
		CompletedAt:    &now,
	}

	outboxMessage, err := outbox.NewMessage(settled)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"transaction_id", request.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for tx %s: %w", request.TransactionID.String(), err)
	}

	if err = outboxRepoTx.Create(ctx, outboxMessage); err != nil {
		return err
	}
	logger.Info("Outbox message created",
		"transaction_id", request.TransactionID.String(),
		"outbox_id", outboxMessage.ID,
	)

	return nil
}
