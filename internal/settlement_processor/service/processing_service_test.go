package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

type MockSettlementValidator struct {
	mock.Mock
}

func (m *MockSettlementValidator) Validate(ctx context.Context, request *shared.SettlementRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockSettlementValidator) CheckIdempotency(ctx context.Context, request *shared.SettlementRequest) (bool, error) {
	args := m.Called(ctx, request)
	return args.Bool(0), args.Error(1)
}

type MockWalletManager struct {
	mock.Mock
}

func (m *MockWalletManager) LockAndAdjustWallet(ctx context.Context, tx pgx.Tx, request *shared.SettlementRequest) (*wallet.Wallet, error) {
	args := m.Called(ctx, tx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.SettlementRequest) error {
	args := m.Called(ctx, tx, request)
	return args.Error(0)
}

type MockLedgerRecorder struct {
	mock.Mock
}

func (m *MockLedgerRecorder) MarkProcessing(ctx context.Context, request *shared.SettlementRequest) (bool, error) {
	args := m.Called(ctx, request)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRecorder) MarkCompleted(ctx context.Context, request *shared.SettlementRequest) {
	m.Called(ctx, request)
}

func (m *MockLedgerRecorder) RecordFailure(ctx context.Context, request *shared.SettlementRequest, failureReason string) error {
	args := m.Called(ctx, request, failureReason)
	return args.Error(0)
}

// MockTx implements pgx.Tx; only Commit and Rollback carry expectations.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}

func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *MockTx) Conn() *pgx.Conn {
	return nil
}

type fakeTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (f fakeTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return f.tx, f.err
}

type settlementFixture struct {
	validator      *MockSettlementValidator
	walletManager  *MockWalletManager
	outboxManager  *MockOutboxManager
	ledgerRecorder *MockLedgerRecorder
	tx             *MockTx
	service        *ProcessingServiceImpl
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		validator:      new(MockSettlementValidator),
		walletManager:  new(MockWalletManager),
		outboxManager:  new(MockOutboxManager),
		ledgerRecorder: new(MockLedgerRecorder),
		tx:             new(MockTx),
	}
	f.service = &ProcessingServiceImpl{
		pool:           fakeTxBeginner{tx: f.tx},
		validator:      f.validator,
		walletManager:  f.walletManager,
		outboxManager:  f.outboxManager,
		ledgerRecorder: f.ledgerRecorder,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return f
}

func newSettlementRequest(txType shared.TransactionType) *shared.SettlementRequest {
	return &shared.SettlementRequest{
		TransactionID: uuid.New(),
		WalletID:      uuid.New(),
		OwnerID:       uuid.New(),
		Type:          txType,
		Amount:        decimal.RequireFromString("50.00"),
		Fee:           decimal.RequireFromString("1.00"),
		NetAmount:     decimal.RequireFromString("49.00"),
		Currency:      "USD",
		CorrelationID: uuid.New().String(),
		Timestamp:     time.Now(),
	}
}

func TestProcessingService_ProcessSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulSettlement", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()
		f.walletManager.On("LockAndAdjustWallet", mock.Anything, f.tx, req).Return(&wallet.Wallet{ID: req.WalletID}, nil).Once()
		f.outboxManager.On("CreateOutboxEntry", mock.Anything, f.tx, req).Return(nil).Once()
		f.tx.On("Commit", mock.Anything).Return(nil).Once()
		f.ledgerRecorder.On("MarkCompleted", mock.Anything, req).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
		f.tx.AssertNotCalled(t, "Rollback")
		f.ledgerRecorder.AssertExpectations(t)
	})

	t.Run("ValidationFailureIsAcknowledged", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(shared.ErrInvalidTransactionType).Once()
		f.ledgerRecorder.On("RecordFailure", mock.Anything, req, string(shared.FailureReasonUnknownError)).Return(nil).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
		f.validator.AssertNotCalled(t, "CheckIdempotency")
	})

	t.Run("AlreadySettledSkips", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(true, nil).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
		f.ledgerRecorder.AssertNotCalled(t, "MarkProcessing")
	})

	t.Run("IdempotencyCheckErrorRetries", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, assert.AnError).Once()

		assert.Error(t, f.service.ProcessSettlement(ctx, req))
	})

	t.Run("UnclaimableTransactionDropped", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(false, nil).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
		f.walletManager.AssertNotCalled(t, "LockAndAdjustWallet")
	})

	t.Run("InsufficientFundsRecordsFailureAndRollsBack", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeWithdrawal)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()
		f.walletManager.On("LockAndAdjustWallet", mock.Anything, f.tx, req).Return(nil, wallet.ErrInsufficientFunds).Once()
		f.ledgerRecorder.On("RecordFailure", mock.Anything, req, string(shared.FailureReasonInsufficientFunds)).Return(nil).Once()
		f.tx.On("Rollback", mock.Anything).Return(nil).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
		f.tx.AssertExpectations(t)
		f.outboxManager.AssertNotCalled(t, "CreateOutboxEntry")
	})

	t.Run("WalletNotFoundRecordsFailure", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()
		f.walletManager.On("LockAndAdjustWallet", mock.Anything, f.tx, req).
			Return(nil, wallet.ErrWalletNotFound{WalletID: req.WalletID}).Once()
		f.ledgerRecorder.On("RecordFailure", mock.Anything, req, string(shared.FailureReasonWalletNotFound)).Return(nil).Once()
		f.tx.On("Rollback", mock.Anything).Return(nil).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
	})

	t.Run("InfrastructureErrorRetries", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()
		f.walletManager.On("LockAndAdjustWallet", mock.Anything, f.tx, req).Return(nil, assert.AnError).Once()
		f.tx.On("Rollback", mock.Anything).Return(nil).Once()

		assert.Error(t, f.service.ProcessSettlement(ctx, req))
		f.ledgerRecorder.AssertNotCalled(t, "RecordFailure")
	})

	t.Run("DuplicateOutboxEntryDropped", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()
		f.walletManager.On("LockAndAdjustWallet", mock.Anything, f.tx, req).Return(&wallet.Wallet{ID: req.WalletID}, nil).Once()
		f.outboxManager.On("CreateOutboxEntry", mock.Anything, f.tx, req).
			Return(outbox.ErrDuplicateMessage{TransactionID: req.TransactionID}).Once()
		f.tx.On("Rollback", mock.Anything).Return(nil).Once()

		assert.NoError(t, f.service.ProcessSettlement(ctx, req))
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("CommitFailureRetries", func(t *testing.T) {
		f := newSettlementFixture()
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()
		f.walletManager.On("LockAndAdjustWallet", mock.Anything, f.tx, req).Return(&wallet.Wallet{ID: req.WalletID}, nil).Once()
		f.outboxManager.On("CreateOutboxEntry", mock.Anything, f.tx, req).Return(nil).Once()
		f.tx.On("Commit", mock.Anything).Return(assert.AnError).Once()
		f.tx.On("Rollback", mock.Anything).Return(nil).Once()

		assert.Error(t, f.service.ProcessSettlement(ctx, req))
		f.ledgerRecorder.AssertNotCalled(t, "MarkCompleted")
	})

	t.Run("BeginFailureRetries", func(t *testing.T) {
		f := newSettlementFixture()
		f.service.pool = fakeTxBeginner{err: assert.AnError}
		req := newSettlementRequest(shared.TransactionTypeDeposit)

		f.validator.On("Validate", mock.Anything, req).Return(nil).Once()
		f.validator.On("CheckIdempotency", mock.Anything, req).Return(false, nil).Once()
		f.ledgerRecorder.On("MarkProcessing", mock.Anything, req).Return(true, nil).Once()

		assert.Error(t, f.service.ProcessSettlement(ctx, req))
	})
}
