package mongo

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

func TestNewLedgerRepository(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := &mongo.Database{}

	repo := NewLedgerRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &LedgerRepository{}, repo)
}

func TestTransactionDocument_RoundTrip(t *testing.T) {
	relatedID := uuid.New()
	completedAt := time.Now().UTC().Truncate(time.Millisecond)
	tx := &ledger.Transaction{
		TransactionID:        uuid.New(),
		WalletID:             uuid.New(),
		Type:                 shared.TransactionTypeEscrowRelease,
		Amount:               decimal.RequireFromString("80.00"),
		Fee:                  decimal.Zero,
		NetAmount:            decimal.RequireFromString("80.00"),
		Currency:             "USD",
		Status:               shared.TransactionStatusCompleted,
		RelatedTransactionID: &relatedID,
		Description:          "milestone release",
		IdempotencyKey:       "release-1",
		CorrelationID:        "corr-1",
		CreatedAt:            time.Now().UTC().Truncate(time.Millisecond),
		CompletedAt:          &completedAt,
	}

	doc := toDocument(tx)
	assert.Equal(t, "80", doc.Amount, "amounts are stored as canonical decimal strings")
	assert.Equal(t, "ESCROW_RELEASE", doc.Type)
	assert.Equal(t, "COMPLETED", doc.Status)

	got, err := doc.toTransaction()
	require.NoError(t, err)
	assert.Equal(t, tx.TransactionID, got.TransactionID)
	assert.Equal(t, tx.WalletID, got.WalletID)
	assert.True(t, tx.Amount.Equal(got.Amount))
	assert.True(t, tx.Fee.Equal(got.Fee))
	assert.True(t, tx.NetAmount.Equal(got.NetAmount))
	assert.Equal(t, tx.Status, got.Status)
	assert.Equal(t, &relatedID, got.RelatedTransactionID)
	assert.Equal(t, &completedAt, got.CompletedAt)
}

func TestTransactionDocument_CorruptAmounts(t *testing.T) {
	base := func() *transactionDocument {
		return &transactionDocument{
			TransactionID: uuid.New(),
			WalletID:      uuid.New(),
			Type:          string(shared.TransactionTypeDeposit),
			Amount:        "50.00",
			Fee:           "1.00",
			NetAmount:     "49.00",
			Currency:      "USD",
			Status:        string(shared.TransactionStatusPending),
			CreatedAt:     time.Now(),
		}
	}

	t.Run("BadAmount", func(t *testing.T) {
		doc := base()
		doc.Amount = "fifty"
		_, err := doc.toTransaction()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid stored amount")
	})

	t.Run("BadFee", func(t *testing.T) {
		doc := base()
		doc.Fee = ""
		_, err := doc.toTransaction()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid stored fee")
	})

	t.Run("BadNetAmount", func(t *testing.T) {
		doc := base()
		doc.NetAmount = "49.0.0"
		_, err := doc.toTransaction()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid stored net amount")
	})
}
