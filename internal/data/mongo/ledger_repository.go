package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

const (
	// TransactionCollectionName is the name of the transaction collection in MongoDB
	TransactionCollectionName = "wallet_transactions"
)

// transactionDocument is the MongoDB shape of a ledger transaction. Amounts
// are stored as canonical decimal strings to avoid float rounding in BSON.
type transactionDocument struct {
	TransactionID        uuid.UUID  `bson:"transaction_id"`
	WalletID             uuid.UUID  `bson:"wallet_id"`
	Type                 string     `bson:"type"`
	Amount               string     `bson:"amount"`
	Fee                  string     `bson:"fee"`
	NetAmount            string     `bson:"net_amount"`
	Currency             string     `bson:"currency"`
	Status               string     `bson:"status"`
	RelatedTransactionID *uuid.UUID `bson:"related_transaction_id,omitempty"`
	Description          string     `bson:"description,omitempty"`
	IdempotencyKey       string     `bson:"idempotency_key,omitempty"`
	CorrelationID        string     `bson:"correlation_id,omitempty"`
	FailureReason        string     `bson:"failure_reason,omitempty"`
	CreatedAt            time.Time  `bson:"created_at"`
	CompletedAt          *time.Time `bson:"completed_at,omitempty"`
}

func toDocument(tx *ledger.Transaction) *transactionDocument {
	return &transactionDocument{
		TransactionID:        tx.TransactionID,
		WalletID:             tx.WalletID,
		Type:                 string(tx.Type),
		Amount:               tx.Amount.String(),
		Fee:                  tx.Fee.String(),
		NetAmount:            tx.NetAmount.String(),
		Currency:             tx.Currency,
		Status:               string(tx.Status),
		RelatedTransactionID: tx.RelatedTransactionID,
		Description:          tx.Description,
		IdempotencyKey:       tx.IdempotencyKey,
		CorrelationID:        tx.CorrelationID,
		FailureReason:        tx.FailureReason,
		CreatedAt:            tx.CreatedAt,
		CompletedAt:          tx.CompletedAt,
	}
}

func (d *transactionDocument) toTransaction() (*ledger.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", d.Amount, err)
	}
	fee, err := decimal.NewFromString(d.Fee)
	if err != nil {
		return nil, fmt.Errorf("invalid stored fee %q: %w", d.Fee, err)
	}
	netAmount, err := decimal.NewFromString(d.NetAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored net amount %q: %w", d.NetAmount, err)
	}

	return &ledger.Transaction{
		TransactionID:        d.TransactionID,
		WalletID:             d.WalletID,
		Type:                 shared.TransactionType(d.Type),
		Amount:               amount,
		Fee:                  fee,
		NetAmount:            netAmount,
		Currency:             d.Currency,
		Status:               shared.TransactionStatus(d.Status),
		RelatedTransactionID: d.RelatedTransactionID,
		Description:          d.Description,
		IdempotencyKey:       d.IdempotencyKey,
		CorrelationID:        d.CorrelationID,
		FailureReason:        d.FailureReason,
		CreatedAt:            d.CreatedAt,
		CompletedAt:          d.CompletedAt,
	}, nil
}

// LedgerRepository implements the ledger.Repository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) ledger.Repository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new ledger transaction after checking for duplicates.
// Returns ErrDuplicateTransaction if a transaction with the same ID exists.
func (r *LedgerRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	collection := r.db.Collection(TransactionCollectionName)

	existing, err := r.GetByTransactionID(ctx, tx.TransactionID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound{}) {
		r.logger.Error("Failed to check for existing ledger transaction",
			"transaction_id", tx.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing ledger transaction: %w", err)
	}

	if existing != nil {
		return ledger.ErrDuplicateTransaction{TransactionID: tx.TransactionID}
	}

	_, err = collection.InsertOne(ctx, toDocument(tx))
	if err != nil {
		r.logger.Error("Failed to create ledger transaction",
			"transaction_id", tx.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create ledger transaction: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a ledger transaction by its ID.
// Returns ErrTransactionNotFound if no transaction exists.
func (r *LedgerRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*ledger.Transaction, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var doc transactionDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrTransactionNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get ledger transaction",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger transaction: %w", err)
	}

	return doc.toTransaction()
}

// GetByIdempotencyKey retrieves a ledger transaction using its idempotency key.
// Returns nil if no transaction exists, enabling idempotent request handling.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*ledger.Transaction, error) {
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"idempotency_key": idempotencyKey}
	var doc transactionDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No transaction recorded under this idempotency key
		}
		r.logger.Error("Failed to get ledger transaction by idempotency key",
			"idempotency_key", idempotencyKey,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger transaction by idempotency key: %w", err)
	}

	return doc.toTransaction()
}

// GetByRelatedTransactionID retrieves transactions linked to the given one,
// such as the release and refund legs of an escrow hold.
func (r *LedgerRepository) GetByRelatedTransactionID(ctx context.Context, relatedID uuid.UUID) ([]*ledger.Transaction, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"related_transaction_id": relatedID}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get related ledger transactions",
			"related_transaction_id", relatedID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get related ledger transactions: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodeAll(ctx, cursor)
}

// GetByWalletID retrieves paginated ledger transactions for a wallet.
// Results are sorted by creation time in descending order (newest first).
func (r *LedgerRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, listFilter ledger.ListFilter, limit, offset int) ([]*ledger.Transaction, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"wallet_id": walletID}
	if listFilter.Type != "" {
		filter["type"] = string(listFilter.Type)
	}
	if listFilter.Status != "" {
		filter["status"] = string(listFilter.Status)
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger transactions",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger transactions: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodeAll(ctx, cursor)
}

// CountByWalletID counts the total number of ledger transactions for a wallet
func (r *LedgerRepository) CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"wallet_id": walletID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count ledger transactions",
			"wallet_id", walletID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger transactions: %w", err)
	}

	return count, nil
}

// UpdateStatus moves a transaction to the given status. The filter restricts
// the update to valid predecessor statuses, so a terminal transaction is
// never reopened; such attempts surface ErrInvalidTransition with the stored
// status.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status shared.TransactionStatus, reason string) error {
	collection := r.db.Collection(TransactionCollectionName)

	predecessors := shared.Predecessors(status)
	if len(predecessors) == 0 {
		return ledger.ErrInvalidTransition{TransactionID: transactionID, To: status}
	}
	allowedFrom := make([]string, 0, len(predecessors))
	for _, p := range predecessors {
		allowedFrom = append(allowedFrom, string(p))
	}

	filter := bson.M{
		"transaction_id": transactionID,
		"status":         bson.M{"$in": allowedFrom},
	}
	set := bson.M{
		"status":         string(status),
		"failure_reason": reason,
	}
	if status.Terminal() {
		set["completed_at"] = time.Now()
	}
	update := bson.M{"$set": set}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update ledger transaction status",
			"transaction_id", transactionID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update ledger transaction status: %w", err)
	}

	if result.MatchedCount == 0 {
		existing, getErr := r.GetByTransactionID(ctx, transactionID)
		if getErr != nil {
			return getErr
		}
		return ledger.ErrInvalidTransition{
			TransactionID: transactionID,
			From:          existing.Status,
			To:            status,
		}
	}

	return nil
}

// GetByTimeRange retrieves paginated ledger transactions within the specified
// time window, newest first.
func (r *LedgerRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*ledger.Transaction, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger transactions by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger transactions by time range: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodeAll(ctx, cursor)
}

func (r *LedgerRepository) decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*ledger.Transaction, error) {
	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode ledger transactions", "error", err)
		return nil, fmt.Errorf("failed to decode ledger transactions: %w", err)
	}

	transactions := make([]*ledger.Transaction, 0, len(docs))
	for i := range docs {
		tx, err := docs[i].toTransaction()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}
