package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/platform/messaging/producers"
)

// EventPublisher publishes settled outbox messages as wallet events
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	ledgerRepo ledger.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	ledgerRepo ledger.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		ledgerRepo: ledgerRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes the settled transaction to the wallet events topic
// and reconciles the ledger record to COMPLETED. The outbox row was written
// in the same database transaction that applied the balance change, so a
// payload reaching this point is authoritative: the ledger update here is a
// backstop for gateway or processor crashes between commit and ledger write.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	var event ledger.Transaction
	if err := json.Unmarshal(message.Payload, &event); err != nil {
		p.logger.Error("Failed to unmarshal transaction from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message as wallet event", "outbox_id", message.ID, "transaction_id", message.TransactionID)

	event.Status = shared.TransactionStatusCompleted
	if event.CompletedAt == nil {
		now := time.Now().UTC()
		event.CompletedAt = &now
	}

	if err := p.producer.Publish(ctx, event.WalletID.String(), event); err != nil {
		logger.Error("Failed to publish wallet event", "transaction_id", event.TransactionID, "error", err)
		return fmt.Errorf("failed to publish wallet event for %s: %w", event.TransactionID, err)
	}

	if err := p.reconcileLedger(ctx, logger, &event); err != nil {
		return err
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}

// reconcileLedger forces the ledger record for the settled transaction into
// COMPLETED, creating it if the gateway crashed before the initial write.
func (p *EventPublisherImpl) reconcileLedger(ctx context.Context, logger *slog.Logger, event *ledger.Transaction) error {
	existing, err := p.ledgerRepo.GetByTransactionID(ctx, event.TransactionID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound{}) {
		logger.Error("Failed to check existing ledger transaction before reconciling", "transaction_id", event.TransactionID, "error", err)
		return fmt.Errorf("failed to check existing ledger transaction %s: %w", event.TransactionID, err)
	}

	if existing == nil {
		if err := p.ledgerRepo.Create(ctx, event); err != nil {
			logger.Error("Failed to create ledger transaction during reconciliation", "transaction_id", event.TransactionID, "error", err)
			return fmt.Errorf("failed to create ledger transaction %s: %w", event.TransactionID, err)
		}
		logger.Info("Created ledger transaction during reconciliation", "transaction_id", event.TransactionID)
		return nil
	}

	if existing.Status == shared.TransactionStatusCompleted {
		logger.Debug("Ledger transaction already COMPLETED", "transaction_id", event.TransactionID)
		return nil
	}

	err = p.ledgerRepo.UpdateStatus(ctx, event.TransactionID, shared.TransactionStatusCompleted, "")
	if err != nil {
		// A transition rejection means another writer beat us to a terminal
		// status; the outbox row still proves the balance effect applied.
		if errors.Is(err, ledger.ErrInvalidTransition{}) {
			logger.Warn("Ledger transaction reached a terminal status concurrently", "transaction_id", event.TransactionID)
			return nil
		}
		logger.Error("Failed to update ledger transaction to COMPLETED", "transaction_id", event.TransactionID, "error", err)
		return fmt.Errorf("failed to update ledger transaction %s to COMPLETED: %w", event.TransactionID, err)
	}

	logger.Info("Updated ledger transaction to COMPLETED", "transaction_id", event.TransactionID)
	return nil
}
