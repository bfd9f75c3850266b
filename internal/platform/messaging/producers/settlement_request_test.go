package producers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSettlementReqMessageProducer_Publish(t *testing.T) {
	ctx := context.Background()
	topic := "wallet_settlement_requests"

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &SettlementReqMessageProducer{
			logger: newTestLogger(),
			writer: mockWriter,
			topic:  topic,
		}

		walletID := uuid.New()
		value := &shared.SettlementRequest{
			TransactionID: uuid.New(),
			WalletID:      walletID,
			Type:          shared.TransactionTypeDeposit,
			Amount:        decimal.RequireFromString("50.00"),
			Fee:           decimal.RequireFromString("1.00"),
			NetAmount:     decimal.RequireFromString("49.00"),
			Currency:      "USD",
		}
		expectedJSON, _ := json.Marshal(value)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			return string(msgs[0].Key) == walletID.String() && string(msgs[0].Value) == string(expectedJSON)
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, walletID.String(), value))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriteFailure", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &SettlementReqMessageProducer{
			logger: newTestLogger(),
			writer: mockWriter,
			topic:  topic,
		}

		mockWriter.On("WriteMessages", ctx, mock.Anything).Return(assert.AnError).Once()

		err := producer.Publish(ctx, "key", &shared.SettlementRequest{})
		assert.ErrorContains(t, err, "failed to publish settlement request")
	})

	t.Run("UnmarshalableValue", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &SettlementReqMessageProducer{
			logger: newTestLogger(),
			writer: mockWriter,
			topic:  topic,
		}

		err := producer.Publish(ctx, "key", make(chan int))
		assert.ErrorContains(t, err, "failed to marshal settlement request")
		mockWriter.AssertNotCalled(t, "WriteMessages")
	})
}

func TestSettlementReqMessageProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &SettlementReqMessageProducer{
		logger: newTestLogger(),
		writer: mockWriter,
		topic:  "wallet_settlement_requests",
	}
	mockWriter.On("Close").Return(nil).Once()

	assert.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}
