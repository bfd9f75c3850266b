package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
	"github.com/marketplace-wallet-ledger/internal/settlement_processor/service"
)

// WalletManagerImpl implements the WalletManager interface
type WalletManagerImpl struct {
	walletRepo wallet.Repository
	logger     *slog.Logger
}

// NewWalletManager creates a new WalletManagerImpl
func NewWalletManager(walletRepo wallet.Repository, logger *slog.Logger) service.WalletManager {
	return &WalletManagerImpl{
		walletRepo: walletRepo,
		logger:     logger,
	}
}

// LockAndAdjustWallet locks a wallet row, validates the settlement against
// it, and applies the balance effect: deposits credit the net amount (the
// fee stays with the platform), withdrawals debit the full amount.
func (m *WalletManagerImpl) LockAndAdjustWallet(ctx context.Context, tx pgx.Tx, request *shared.SettlementRequest) (*wallet.Wallet, error) {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	walletRepoTx := m.walletRepo.WithTx(tx)

	locked, err := walletRepoTx.LockForUpdate(ctx, request.WalletID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{WalletID: request.WalletID}) {
			logger.Warn("Wallet not found for lock", "transaction_id", request.TransactionID.String(), "wallet_id", request.WalletID.String())
			return nil, err
		}
		logger.Error("Failed to lock wallet", "transaction_id", request.TransactionID.String(), "wallet_id", request.WalletID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet %s: %w", request.WalletID.String(), err)
	}
	logger.Info("Wallet locked",
		"transaction_id", request.TransactionID.String(),
		"wallet_id", locked.ID.String(),
		"balance", locked.Balance.String(),
		"version", locked.Version,
	)

	if locked.Currency != request.Currency {
		logger.Error("Currency mismatch", "transaction_id", request.TransactionID.String(), "request_currency", request.Currency, "wallet_currency", locked.Currency)
		return nil, shared.ErrInvalidCurrency
	}

	switch request.Type {
	case shared.TransactionTypeDeposit:
		if creditErr := locked.Credit(request.NetAmount); creditErr != nil {
			logger.Error("Failed to apply deposit credit", "transaction_id", request.TransactionID.String(), "error", creditErr)
			return nil, creditErr
		}
	case shared.TransactionTypeWithdrawal:
		if debitErr := locked.Debit(request.Amount); debitErr != nil {
			logger.Warn("Failed to apply withdrawal debit",
				"transaction_id", request.TransactionID.String(),
				"error", debitErr,
				"balance", locked.Balance.String(),
				"amount", request.Amount.String(),
			)
			return nil, debitErr
		}
	}

	if err = walletRepoTx.Update(ctx, locked); err != nil {
		if errors.Is(err, wallet.ErrConcurrentModification{WalletID: locked.ID}) {
			logger.Warn("Concurrent modification on wallet update", "transaction_id", request.TransactionID.String(), "wallet_id", locked.ID.String())
		} else {
			logger.Error("Failed to update wallet", "transaction_id", request.TransactionID.String(), "wallet_id", locked.ID.String(), "error", err)
		}
		return nil, err
	}
	logger.Info("Wallet balance updated",
		"transaction_id", request.TransactionID.String(),
		"wallet_id", locked.ID.String(),
		"new_balance", locked.Balance.String(),
	)

	return locked, nil
}
