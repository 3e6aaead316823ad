// Package mongo provides the MongoDB implementation of the failure archive.
// Failure records are append-only documents with free-form structured
// details, which suits a document store better than a relational table.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vendor-payouts/payout-service/internal/domain/payout"
)

const (
	// FailureCollectionName is the name of the failure records collection
	FailureCollectionName = "failure_records"
)

// FailureRepository implements payout.FailureRepository for MongoDB
type FailureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewFailureRepository creates a new MongoDB failure repository
func NewFailureRepository(logger *slog.Logger, db *mongo.Database) payout.FailureRepository {
	return &FailureRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a failure record. Records are never updated or deleted.
func (r *FailureRepository) Create(ctx context.Context, record *payout.FailureRecord) error {
	collection := r.db.Collection(FailureCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to create failure record",
			"vendor_account_id", record.VendorAccountID.String(),
			"error", err)
		return fmt.Errorf("failed to create failure record: %w", err)
	}

	return nil
}

// ListByVendor returns failure records for a vendor, newest first
func (r *FailureRepository) ListByVendor(ctx context.Context, vendorAccountID uuid.UUID, limit, offset int) ([]*payout.FailureRecord, error) {
	filter := bson.M{"vendor_account_id": vendorAccountID}
	return r.list(ctx, filter, limit, offset)
}

// ListRequiringReview returns failure records flagged for manual review, newest first
func (r *FailureRepository) ListRequiringReview(ctx context.Context, limit, offset int) ([]*payout.FailureRecord, error) {
	filter := bson.M{"requires_manual_review": true}
	return r.list(ctx, filter, limit, offset)
}

func (r *FailureRepository) list(ctx context.Context, filter bson.M, limit, offset int) ([]*payout.FailureRecord, error) {
	collection := r.db.Collection(FailureCollectionName)

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, findOptions)
	if err != nil {
		r.logger.Error("Failed to list failure records", "error", err)
		return nil, fmt.Errorf("failed to list failure records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*payout.FailureRecord
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode failure records", "error", err)
		return nil, fmt.Errorf("failed to decode failure records: %w", err)
	}

	return records, nil
}
