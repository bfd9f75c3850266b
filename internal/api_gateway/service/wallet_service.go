package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/domain/fees"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
	"github.com/marketplace-wallet-ledger/internal/platform/messaging/producers"
)

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	walletRepo wallet.Repository
	ledgerRepo ledger.Repository
	feeCalc    *fees.Calculator
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(logger *slog.Logger, walletRepo wallet.Repository, ledgerRepo ledger.Repository, feeCalc *fees.Calculator, producer producers.MessagePublisher) WalletService {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		feeCalc:    feeCalc,
		producer:   producer,
		logger:     logger,
	}
}

// CreateWallet creates a new zero-balance wallet for the caller. The first
// wallet an owner creates in a currency becomes their default for that
// currency unless explicitly requested otherwise.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string, isDefault bool) (*wallet.Wallet, error) {
	if !isDefault {
		existing, err := s.walletRepo.GetDefaultForOwner(ctx, ownerID, currency)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			isDefault = true
		}
	}

	w, err := wallet.NewWallet(ownerID, currency, isDefault)
	if err != nil {
		return nil, err
	}

	if err := s.walletRepo.Create(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet created",
		"wallet_id", w.ID.String(),
		"owner_id", ownerID.String(),
		"currency", currency,
		"is_default", w.IsDefault,
	)

	return w, nil
}

// GetWallet retrieves a wallet by ID, enforcing ownership
func (s *WalletServiceImpl) GetWallet(ctx context.Context, callerID, walletID uuid.UUID) (*wallet.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != callerID {
		return nil, wallet.ErrUnauthorized{WalletID: walletID, CallerID: callerID}
	}
	return w, nil
}

// ListWallets retrieves all wallets owned by the caller
func (s *WalletServiceImpl) ListWallets(ctx context.Context, ownerID uuid.UUID) ([]*wallet.Wallet, error) {
	return s.walletRepo.ListByOwner(ctx, ownerID)
}

// Deposit opens a deposit ledger transaction and publishes a settlement request
func (s *WalletServiceImpl) Deposit(ctx context.Context, callerID, walletID uuid.UUID, amount decimal.Decimal, currency, idempotencyKey, correlationID string) (*ledger.Transaction, bool, error) {
	return s.submit(ctx, shared.TransactionTypeDeposit, callerID, walletID, amount, currency, idempotencyKey, correlationID)
}

// Withdraw opens a withdrawal ledger transaction and publishes a settlement
// request. Available funds are pre-checked here; the settlement processor
// re-checks under a row lock before debiting.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, callerID, walletID uuid.UUID, amount decimal.Decimal, currency, idempotencyKey, correlationID string) (*ledger.Transaction, bool, error) {
	return s.submit(ctx, shared.TransactionTypeWithdrawal, callerID, walletID, amount, currency, idempotencyKey, correlationID)
}

func (s *WalletServiceImpl) submit(ctx context.Context, txType shared.TransactionType, callerID, walletID uuid.UUID, amount decimal.Decimal, currency, idempotencyKey, correlationID string) (*ledger.Transaction, bool, error) {
	if idempotencyKey != "" {
		existing, err := s.ledgerRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			s.logger.Error("Failed to check for existing transaction with idempotency key",
				"idempotency_key", idempotencyKey,
				"error", err,
			)
			return nil, false, err
		}
		if existing != nil {
			s.logger.Info("Found existing transaction with idempotency key",
				"idempotency_key", idempotencyKey,
				"transaction_id", existing.TransactionID,
				"status", string(existing.Status),
			)
			return existing, true, nil
		}
	}

	w, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, false, err
	}
	if w.OwnerID != callerID {
		return nil, false, wallet.ErrUnauthorized{WalletID: walletID, CallerID: callerID}
	}
	if w.Disabled {
		return nil, false, wallet.ErrWalletDisabled
	}
	if currency != w.Currency {
		return nil, false, wallet.ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return nil, false, wallet.ErrInvalidAmount
	}

	var fee decimal.Decimal
	switch txType {
	case shared.TransactionTypeDeposit:
		fee, err = s.feeCalc.DepositFee(amount, currency)
	case shared.TransactionTypeWithdrawal:
		fee, err = s.feeCalc.WithdrawalFee(amount, currency)
	default:
		return nil, false, shared.ErrInvalidTransactionType
	}
	if err != nil {
		return nil, false, err
	}

	// Withdrawals debit the full amount; a balance below that is rejected up
	// front rather than after a round trip through the settlement pipeline.
	if txType == shared.TransactionTypeWithdrawal && !w.CanDebit(amount) {
		return nil, false, wallet.ErrInsufficientFunds
	}

	tx, err := ledger.NewTransaction(txType, walletID, amount, fee, currency)
	if err != nil {
		return nil, false, err
	}
	tx.IdempotencyKey = idempotencyKey
	tx.CorrelationID = correlationID

	if err := s.ledgerRepo.Create(ctx, tx); err != nil {
		return nil, false, err
	}

	request := &shared.SettlementRequest{
		TransactionID:  tx.TransactionID,
		WalletID:       walletID,
		OwnerID:        w.OwnerID,
		Type:           txType,
		Amount:         amount,
		Fee:            fee,
		NetAmount:      tx.NetAmount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
		CorrelationID:  correlationID,
		Timestamp:      time.Now(),
	}

	// Keyed by wallet ID so settlement requests for one wallet stay ordered
	if err := s.producer.Publish(ctx, walletID.String(), request); err != nil {
		s.logger.Error("Failed to publish settlement request",
			"transaction_id", tx.TransactionID.String(),
			"wallet_id", walletID.String(),
			"type", string(txType),
			"error", err,
		)
		if updErr := s.ledgerRepo.UpdateStatus(ctx, tx.TransactionID, shared.TransactionStatusFailed, string(shared.FailureReasonPublishFailed)); updErr != nil {
			s.logger.Error("Failed to mark unpublished transaction as failed",
				"transaction_id", tx.TransactionID.String(),
				"error", updErr,
			)
		}
		return nil, false, err
	}

	s.logger.Info("Settlement request published",
		"transaction_id", tx.TransactionID.String(),
		"wallet_id", walletID.String(),
		"type", string(txType),
		"amount", amount.String(),
		"fee", fee.String(),
	)

	return tx, false, nil
}
