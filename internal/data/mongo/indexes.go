package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the ledger collection indexes. Safe to call on every
// startup; Mongo treats an existing identical index as a no-op.
//
// The unique transaction_id index is load-bearing: together with the Postgres
// outbox uniqueness it guarantees a settlement is never recorded twice. The
// idempotency_key index is unique only over non-empty keys since internal
// writes do not carry one.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(TransactionCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "related_transaction_id", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"related_transaction_id": bson.M{"$exists": true}}),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}
