package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-wallet-ledger/internal/api_gateway/handler"
	"github.com/marketplace-wallet-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	transactionHandler *handler.TransactionHandler,
	escrowHandler *handler.EscrowHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints; all require a caller identity
	v1 := r.Group("/api/v1")
	v1.Use(middleware.CallerIdentity())
	{
		// Wallet operations
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", walletHandler.Create)
			wallets.GET("", walletHandler.List)
			wallets.GET("/:id", walletHandler.GetByID)
			wallets.GET("/:id/transactions", transactionHandler.GetByWalletID)
			wallets.GET("/:id/escrows", escrowHandler.ListByWallet)
			wallets.POST("/:id/deposit", walletHandler.Deposit)
			wallets.POST("/:id/withdrawal", walletHandler.Withdraw)
		}

		// Transaction operations
		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.POST("/:id/cancel", transactionHandler.Cancel)
		}

		// Escrow operations
		escrows := v1.Group("/escrows")
		{
			escrows.POST("", escrowHandler.Create)
			escrows.GET("/:id", escrowHandler.GetByID)
			escrows.PUT("/:id", escrowHandler.Resolve)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
