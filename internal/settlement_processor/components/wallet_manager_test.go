package components

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

func lockedWallet(req *shared.SettlementRequest, balance string) *wallet.Wallet {
	now := time.Now()
	return &wallet.Wallet{
		ID:        req.WalletID,
		OwnerID:   req.OwnerID,
		Currency:  req.Currency,
		Balance:   decimal.RequireFromString(balance),
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWalletManager_LockAndAdjustWallet(t *testing.T) {
	ctx := context.Background()

	t.Run("DepositCreditsNetAmount", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := depositRequest()
		locked := lockedWallet(req, "100.00")

		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).Return(locked, nil).Once()
		walletRepo.On("Update", ctx, locked).Return(nil).Once()

		updated, err := manager.LockAndAdjustWallet(ctx, nil, req)
		require.NoError(t, err)
		assert.True(t, updated.Balance.Equal(decimal.RequireFromString("149.00")),
			"expected 149.00, got %s", updated.Balance.String())
		assert.Equal(t, 4, updated.Version)
	})

	t.Run("WithdrawalDebitsFullAmount", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := withdrawalRequest()
		locked := lockedWallet(req, "200.00")

		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).Return(locked, nil).Once()
		walletRepo.On("Update", ctx, locked).Return(nil).Once()

		updated, err := manager.LockAndAdjustWallet(ctx, nil, req)
		require.NoError(t, err)
		assert.True(t, updated.Balance.IsZero(), "expected zero balance, got %s", updated.Balance.String())
	})

	t.Run("InsufficientFundsForWithdrawal", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := withdrawalRequest()
		locked := lockedWallet(req, "150.00")

		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).Return(locked, nil).Once()

		_, err := manager.LockAndAdjustWallet(ctx, nil, req)
		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
		assert.True(t, locked.Balance.Equal(decimal.RequireFromString("150.00")), "balance must be untouched")
		walletRepo.AssertNotCalled(t, "Update")
	})

	t.Run("CurrencyMismatch", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := depositRequest()
		locked := lockedWallet(req, "100.00")
		locked.Currency = "EUR"

		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).Return(locked, nil).Once()

		_, err := manager.LockAndAdjustWallet(ctx, nil, req)
		assert.ErrorIs(t, err, shared.ErrInvalidCurrency)
		walletRepo.AssertNotCalled(t, "Update")
	})

	t.Run("WalletNotFound", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := depositRequest()
		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).
			Return(nil, wallet.ErrWalletNotFound{WalletID: req.WalletID}).Once()

		_, err := manager.LockAndAdjustWallet(ctx, nil, req)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{WalletID: req.WalletID})
	})

	t.Run("DisabledWalletRejectsDebit", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := withdrawalRequest()
		locked := lockedWallet(req, "500.00")
		locked.Disabled = true

		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).Return(locked, nil).Once()

		_, err := manager.LockAndAdjustWallet(ctx, nil, req)
		assert.ErrorIs(t, err, wallet.ErrWalletDisabled)
	})

	t.Run("ConcurrentModificationOnUpdate", func(t *testing.T) {
		walletRepo := new(MockWalletRepository)
		manager := NewWalletManager(walletRepo, newTestLogger())

		req := depositRequest()
		locked := lockedWallet(req, "100.00")

		walletRepo.On("WithTx", mock.Anything).Return(nil)
		walletRepo.On("LockForUpdate", ctx, req.WalletID).Return(locked, nil).Once()
		walletRepo.On("Update", ctx, locked).Return(wallet.ErrConcurrentModification{WalletID: locked.ID}).Once()

		_, err := manager.LockAndAdjustWallet(ctx, nil, req)
		assert.ErrorIs(t, err, wallet.ErrConcurrentModification{})
	})
}
