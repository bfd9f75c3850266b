package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marketplace-wallet-ledger/internal/config"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

// retryOnConflict runs fn up to cfg.MaxAttempts times, retrying only on
// optimistic-lock conflicts with exponential backoff. Any other error, or an
// exhausted retry budget, is returned to the caller.
func retryOnConflict(ctx context.Context, cfg config.RetryConfig, logger *slog.Logger, fn func() error) error {
	var err error
	backoff := cfg.Backoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, wallet.ErrConcurrentModification{}) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn("Concurrent modification detected, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return err
}
