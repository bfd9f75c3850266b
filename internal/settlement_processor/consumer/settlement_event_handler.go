package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/platform/messaging/producers"
	"github.com/marketplace-wallet-ledger/internal/settlement_processor/service"
)

// SettlementEventHandler handles incoming settlement request messages from Kafka
type SettlementEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewSettlementEventHandler creates a new handler
func NewSettlementEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *SettlementEventHandler {
	return &SettlementEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SettlementRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received settlement request for processing",
		"transaction_id", request.TransactionID.String(),
		"wallet_id", request.WalletID.String(),
		"type", request.Type,
		"amount", request.Amount.String(),
	)

	if err := h.processingService.ProcessSettlement(ctx, &request); err != nil {
		logger.Error("Failed to process settlement",
			"transaction_id", request.TransactionID.String(),
			"wallet_id", request.WalletID.String(),
			"error", err,
		)
		return fmt.Errorf("processing settlement %s failed: %w", request.TransactionID.String(), err)
	}

	logger.Info("Successfully processed settlement", "transaction_id", request.TransactionID.String())
	return nil // Success, commit offset
}
