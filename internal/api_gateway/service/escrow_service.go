package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/config"
	"github.com/marketplace-wallet-ledger/internal/domain/escrow"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
	"github.com/marketplace-wallet-ledger/internal/platform/persistence"
)

// EscrowServiceImpl implements the EscrowService interface. All operations
// settle synchronously: the wallet adjustment, the hold state change, and the
// outbox event commit in a single Postgres transaction, with the ledger
// record written around it.
type EscrowServiceImpl struct {
	txRunner   persistence.TxRunner
	walletRepo wallet.Repository
	escrowRepo escrow.Repository
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	retryCfg   config.RetryConfig
	logger     *slog.Logger
}

// NewEscrowService creates a new escrow service
func NewEscrowService(logger *slog.Logger, txRunner persistence.TxRunner, walletRepo wallet.Repository, escrowRepo escrow.Repository, ledgerRepo ledger.Repository, outboxRepo outbox.Repository, retryCfg config.RetryConfig) EscrowService {
	return &EscrowServiceImpl{
		txRunner:   txRunner,
		walletRepo: walletRepo,
		escrowRepo: escrowRepo,
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		retryCfg:   retryCfg,
		logger:     logger,
	}
}

// CreateHold debits the funder wallet and opens an escrow hold atomically.
// If the debit or hold insert fails, the transaction rolls back, the wallet
// is untouched, and the hold ledger transaction is marked FAILED.
func (s *EscrowServiceImpl) CreateHold(ctx context.Context, callerID uuid.UUID, params CreateHoldParams) (*escrow.Hold, error) {
	funder, err := s.walletRepo.GetByID(ctx, params.FunderWalletID)
	if err != nil {
		return nil, err
	}
	if funder.OwnerID != callerID {
		return nil, wallet.ErrUnauthorized{WalletID: params.FunderWalletID, CallerID: callerID}
	}
	if funder.Disabled {
		return nil, wallet.ErrWalletDisabled
	}
	if params.Currency != funder.Currency {
		return nil, wallet.ErrCurrencyMismatch
	}
	if !params.Amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}
	if !funder.CanDebit(params.Amount) {
		return nil, wallet.ErrInsufficientFunds
	}

	existing, err := s.escrowRepo.GetByContract(ctx, params.ContractID, params.MilestoneID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Resolved() {
		return nil, escrow.ErrDuplicateHold{ContractID: params.ContractID, MilestoneID: params.MilestoneID}
	}

	// Escrow movements carry no platform fee
	tx, err := ledger.NewTransaction(shared.TransactionTypeEscrowHold, params.FunderWalletID, params.Amount, decimal.Zero, params.Currency)
	if err != nil {
		return nil, err
	}
	tx.CorrelationID = params.CorrelationID
	tx.Description = "escrow hold for contract " + params.ContractID.String()

	hold, err := escrow.NewHold(params.ContractID, params.MilestoneID, params.FunderWalletID, params.ReceiverProfileID, params.Amount, params.Currency, tx.TransactionID)
	if err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	err = retryOnConflict(ctx, s.retryCfg, s.logger, func() error {
		return s.txRunner.ExecuteTx(ctx, func(pgTx pgx.Tx) error {
			wRepo := s.walletRepo.WithTx(pgTx)
			current, err := wRepo.GetByID(ctx, params.FunderWalletID)
			if err != nil {
				return err
			}
			if err := wRepo.AdjustBalance(ctx, params.FunderWalletID, params.Amount.Neg(), current.Version); err != nil {
				return err
			}
			if err := s.escrowRepo.WithTx(pgTx).Create(ctx, hold); err != nil {
				return err
			}
			return s.writeOutbox(ctx, pgTx, tx)
		})
	})
	if err != nil {
		s.failLedger(ctx, tx.TransactionID, err)
		return nil, err
	}

	s.completeLedger(ctx, tx.TransactionID)

	s.logger.Info("Escrow hold created",
		"hold_id", hold.ID.String(),
		"contract_id", params.ContractID.String(),
		"funder_wallet_id", params.FunderWalletID.String(),
		"amount", params.Amount.String(),
	)

	return hold, nil
}

// Release credits the held amount to the receiver's default wallet and flips
// the hold to RELEASED.
func (s *EscrowServiceImpl) Release(ctx context.Context, callerID, holdID uuid.UUID) (*escrow.Hold, error) {
	return s.resolve(ctx, callerID, holdID, escrow.HoldStatusReleased)
}

// Refund returns the held amount to the funder wallet and flips the hold to
// REFUNDED.
func (s *EscrowServiceImpl) Refund(ctx context.Context, callerID, holdID uuid.UUID) (*escrow.Hold, error) {
	return s.resolve(ctx, callerID, holdID, escrow.HoldStatusRefunded)
}

func (s *EscrowServiceImpl) resolve(ctx context.Context, callerID, holdID uuid.UUID, target escrow.HoldStatus) (*escrow.Hold, error) {
	hold, err := s.escrowRepo.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}

	funder, err := s.walletRepo.GetByID(ctx, hold.FunderWalletID)
	if err != nil {
		return nil, err
	}
	if funder.OwnerID != callerID {
		return nil, wallet.ErrUnauthorized{WalletID: hold.FunderWalletID, CallerID: callerID}
	}

	// A repeated request for the action that already happened is absorbed;
	// a conflicting one is rejected with the stored terminal state.
	if hold.Resolved() {
		if hold.Status == target {
			return hold, nil
		}
		return nil, escrow.ErrAlreadyResolved{HoldID: holdID, Status: hold.Status}
	}

	var creditWallet *wallet.Wallet
	var txType shared.TransactionType
	switch target {
	case escrow.HoldStatusReleased:
		txType = shared.TransactionTypeEscrowRelease
		creditWallet, err = s.receiverWallet(ctx, hold)
		if err != nil {
			return nil, err
		}
	case escrow.HoldStatusRefunded:
		txType = shared.TransactionTypeEscrowRefund
		creditWallet = funder
	default:
		return nil, fmt.Errorf("unsupported escrow resolution: %s", target)
	}

	tx, err := ledger.NewTransaction(txType, creditWallet.ID, hold.Amount, decimal.Zero, hold.Currency)
	if err != nil {
		return nil, err
	}
	holdTxID := hold.HoldTransactionID
	tx.RelatedTransactionID = &holdTxID
	tx.Description = "escrow " + string(target) + " for contract " + hold.ContractID.String()

	if err := s.ledgerRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	resolvedAt := time.Now()
	err = retryOnConflict(ctx, s.retryCfg, s.logger, func() error {
		return s.txRunner.ExecuteTx(ctx, func(pgTx pgx.Tx) error {
			if err := s.escrowRepo.WithTx(pgTx).Resolve(ctx, holdID, target, tx.TransactionID, resolvedAt); err != nil {
				return err
			}
			wRepo := s.walletRepo.WithTx(pgTx)
			current, err := wRepo.GetByID(ctx, creditWallet.ID)
			if err != nil {
				return err
			}
			if err := wRepo.AdjustBalance(ctx, creditWallet.ID, hold.Amount, current.Version); err != nil {
				return err
			}
			return s.writeOutbox(ctx, pgTx, tx)
		})
	})
	if err != nil {
		s.failLedger(ctx, tx.TransactionID, err)

		// Lost a race to another resolver; apply the same idempotency rule
		// against the now-terminal state.
		if errors.Is(err, escrow.ErrAlreadyResolved{}) {
			refreshed, getErr := s.escrowRepo.GetByID(ctx, holdID)
			if getErr != nil {
				return nil, getErr
			}
			if refreshed.Status == target {
				return refreshed, nil
			}
			return nil, escrow.ErrAlreadyResolved{HoldID: holdID, Status: refreshed.Status}
		}
		return nil, err
	}

	s.completeLedger(ctx, tx.TransactionID)

	s.logger.Info("Escrow hold resolved",
		"hold_id", holdID.String(),
		"status", string(target),
		"credit_wallet_id", creditWallet.ID.String(),
		"amount", hold.Amount.String(),
	)

	hold.Status = target
	hold.ReleaseTransactionID = &tx.TransactionID
	hold.ResolvedAt = &resolvedAt
	return hold, nil
}

// receiverWallet finds the receiver's default wallet for the hold currency,
// creating a zero-balance default wallet when the receiver has none.
func (s *EscrowServiceImpl) receiverWallet(ctx context.Context, hold *escrow.Hold) (*wallet.Wallet, error) {
	existing, err := s.walletRepo.GetDefaultForOwner(ctx, hold.ReceiverProfileID, hold.Currency)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := wallet.NewWallet(hold.ReceiverProfileID, hold.Currency, true)
	if err != nil {
		return nil, err
	}
	if err := s.walletRepo.Create(ctx, created); err != nil {
		// Another release created it first; use theirs
		var dup wallet.ErrDuplicateDefault
		if errors.As(err, &dup) {
			return s.walletRepo.GetDefaultForOwner(ctx, hold.ReceiverProfileID, hold.Currency)
		}
		return nil, err
	}

	s.logger.Info("Created receiver wallet for escrow credit",
		"wallet_id", created.ID.String(),
		"owner_id", hold.ReceiverProfileID.String(),
		"currency", hold.Currency,
	)
	return created, nil
}

// GetHold retrieves a hold, visible to the funder wallet owner and the
// receiver profile.
func (s *EscrowServiceImpl) GetHold(ctx context.Context, callerID, holdID uuid.UUID) (*escrow.Hold, error) {
	hold, err := s.escrowRepo.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.ReceiverProfileID == callerID {
		return hold, nil
	}

	funder, err := s.walletRepo.GetByID(ctx, hold.FunderWalletID)
	if err != nil {
		return nil, err
	}
	if funder.OwnerID != callerID {
		return nil, wallet.ErrUnauthorized{WalletID: hold.FunderWalletID, CallerID: callerID}
	}
	return hold, nil
}

// ListHolds retrieves paginated holds funded from the given wallet
func (s *EscrowServiceImpl) ListHolds(ctx context.Context, callerID, walletID uuid.UUID, page, perPage int) ([]*escrow.Hold, error) {
	w, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != callerID {
		return nil, wallet.ErrUnauthorized{WalletID: walletID, CallerID: callerID}
	}

	offset := (page - 1) * perPage
	return s.escrowRepo.ListByFunderWallet(ctx, walletID, perPage, offset)
}

// writeOutbox records the completed transaction in the outbox inside the same
// Postgres transaction as the balance change, so the wallet event publishes
// if and only if the effect committed.
func (s *EscrowServiceImpl) writeOutbox(ctx context.Context, pgTx pgx.Tx, tx *ledger.Transaction) error {
	settled := *tx
	settled.Status = shared.TransactionStatusCompleted
	now := time.Now()
	settled.CompletedAt = &now

	msg, err := outbox.NewMessage(&settled)
	if err != nil {
		return err
	}
	return s.outboxRepo.WithTx(pgTx).Create(ctx, msg)
}

// completeLedger marks the ledger record COMPLETED. A failure here is logged
// and left to the outbox poller, which re-applies terminal statuses when it
// publishes events.
func (s *EscrowServiceImpl) completeLedger(ctx context.Context, transactionID uuid.UUID) {
	if err := s.ledgerRepo.UpdateStatus(ctx, transactionID, shared.TransactionStatusCompleted, ""); err != nil {
		s.logger.Error("Failed to mark escrow ledger transaction completed",
			"transaction_id", transactionID.String(),
			"error", err,
		)
	}
}

func (s *EscrowServiceImpl) failLedger(ctx context.Context, transactionID uuid.UUID, cause error) {
	reason := failureReasonFor(cause)
	if err := s.ledgerRepo.UpdateStatus(ctx, transactionID, shared.TransactionStatusFailed, string(reason)); err != nil {
		s.logger.Error("Failed to mark escrow ledger transaction failed",
			"transaction_id", transactionID.String(),
			"error", err,
		)
	}
}

func failureReasonFor(err error) shared.FailureReason {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return shared.FailureReasonInsufficientFunds
	case errors.Is(err, wallet.ErrConcurrentModification{}):
		return shared.FailureReasonConcurrentModification
	case errors.Is(err, escrow.ErrAlreadyResolved{}):
		return shared.FailureReasonAlreadyResolved
	case errors.Is(err, wallet.ErrWalletNotFound{}):
		return shared.FailureReasonWalletNotFound
	default:
		return shared.FailureReasonSettlementFailed
	}
}
