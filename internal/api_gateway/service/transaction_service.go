package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	ledgerRepo ledger.Repository
	walletRepo wallet.Repository
	logger     *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, ledgerRepo ledger.Repository, walletRepo wallet.Repository) TransactionService {
	return &TransactionServiceImpl{
		ledgerRepo: ledgerRepo,
		walletRepo: walletRepo,
		logger:     logger,
	}
}

// GetTransactionByID retrieves a transaction by its ID, enforcing wallet
// ownership. Returns nil if not found.
func (s *TransactionServiceImpl) GetTransactionByID(ctx context.Context, callerID, transactionID uuid.UUID) (*ledger.Transaction, error) {
	tx, err := s.ledgerRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound{}) {
			s.logger.Info("Transaction not found", "transaction_id", transactionID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get transaction by ID", "transaction_id", transactionID.String(), "error", err)
		return nil, err
	}

	if err := s.authorize(ctx, callerID, tx.WalletID); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetTransactionsByWalletID retrieves a paginated, optionally filtered list
// of transactions for a wallet. Returns transactions, total count, and any error.
func (s *TransactionServiceImpl) GetTransactionsByWalletID(ctx context.Context, callerID, walletID uuid.UUID, filter ledger.ListFilter, page, perPage int) ([]*ledger.Transaction, int64, error) {
	if err := s.authorize(ctx, callerID, walletID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	transactions, err := s.ledgerRepo.GetByWalletID(ctx, walletID, filter, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByWalletID(ctx, walletID)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// CancelTransaction cancels a transaction still waiting for settlement. The
// guarded status update only matches PENDING, so a transaction the settlement
// processor has already claimed cannot be cancelled.
func (s *TransactionServiceImpl) CancelTransaction(ctx context.Context, callerID, transactionID uuid.UUID) (*ledger.Transaction, error) {
	tx, err := s.ledgerRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, callerID, tx.WalletID); err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.UpdateStatus(ctx, transactionID, shared.TransactionStatusCancelled, ""); err != nil {
		return nil, err
	}

	s.logger.Info("Transaction cancelled",
		"transaction_id", transactionID.String(),
		"wallet_id", tx.WalletID.String(),
	)

	return s.ledgerRepo.GetByTransactionID(ctx, transactionID)
}

func (s *TransactionServiceImpl) authorize(ctx context.Context, callerID, walletID uuid.UUID) error {
	w, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if w.OwnerID != callerID {
		return wallet.ErrUnauthorized{WalletID: walletID, CallerID: callerID}
	}
	return nil
}
