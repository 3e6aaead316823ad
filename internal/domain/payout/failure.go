package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FailureRecord is the durable, append-only record of a failed payout
// attempt. Exhausted retries and fatal failures set RequiresManualReview.
type FailureRecord struct {
	ID                   uuid.UUID              `json:"id" bson:"id"`
	VendorAccountID      uuid.UUID              `json:"vendor_account_id" bson:"vendor_account_id"`
	PayoutRecordID       *uuid.UUID             `json:"payout_record_id,omitempty" bson:"payout_record_id,omitempty"`
	ErrorKind            string                 `json:"error_kind" bson:"error_kind"`
	ErrorMessage         string                 `json:"error_message" bson:"error_message"`
	ErrorDetails         map[string]interface{} `json:"error_details,omitempty" bson:"error_details,omitempty"`
	RetryCount           int                    `json:"retry_count" bson:"retry_count"`
	RequiresManualReview bool                   `json:"requires_manual_review" bson:"requires_manual_review"`
	CorrelationID        string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt            time.Time              `json:"created_at" bson:"created_at"`
}

// FailureRepository manages the append-only failure archive
type FailureRepository interface {
	Create(ctx context.Context, record *FailureRecord) error
	ListByVendor(ctx context.Context, vendorAccountID uuid.UUID, limit, offset int) ([]*FailureRecord, error)
	ListRequiringReview(ctx context.Context, limit, offset int) ([]*FailureRecord, error)
}
