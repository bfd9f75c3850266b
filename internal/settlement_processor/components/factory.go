package components

import (
	"log/slog"

	"github.com/marketplace-wallet-ledger/internal/config"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
	"github.com/marketplace-wallet-ledger/internal/platform/persistence"
	"github.com/marketplace-wallet-ledger/internal/settlement_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	walletRepo wallet.Repository,
	outboxRepo outbox.Repository,
	ledgerRepo ledger.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewSettlementValidator(ledgerRepo, outboxRepo, logger)
	walletManager := NewWalletManager(walletRepo, logger)
	outboxManager := NewOutboxManager(outboxRepo, logger)
	ledgerRecorder := NewLedgerRecorder(ledgerRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		walletManager,
		outboxManager,
		ledgerRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
