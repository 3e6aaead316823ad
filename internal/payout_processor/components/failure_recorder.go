package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
	"github.com/vendor-payouts/payout-service/internal/platform/messaging/producers"
)

type FailureRecorderImpl struct {
	failureRepo payout.FailureRepository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

func NewFailureRecorder(failureRepo payout.FailureRepository, producer producers.MessagePublisher, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		failureRepo: failureRepo,
		producer:    producer,
		logger:      logger,
	}
}

// RecordFailure archives a failed payout attempt. When the failure requires
// manual review, a manual_review_required event is published as well; a
// publish failure is logged but does not fail the recording, the archive
// entry is the durable signal.
func (r *FailureRecorderImpl) RecordFailure(
	ctx context.Context,
	vendorAccountID uuid.UUID,
	payoutRecordID *uuid.UUID,
	cause error,
	retryCount int,
	requiresManualReview bool,
	correlationID string,
) error {
	logger := r.logger
	if correlationID != "" {
		logger = r.logger.With("correlation_id", correlationID)
	}

	record := &payout.FailureRecord{
		ID:                   uuid.New(),
		VendorAccountID:      vendorAccountID,
		PayoutRecordID:       payoutRecordID,
		ErrorKind:            string(shared.KindOf(cause)),
		ErrorMessage:         cause.Error(),
		RetryCount:           retryCount,
		RequiresManualReview: requiresManualReview,
		CorrelationID:        correlationID,
		CreatedAt:            time.Now(),
	}

	var pe *shared.PayoutError
	if errors.As(cause, &pe) && pe.Details != nil {
		record.ErrorDetails = pe.Details
	}

	logger.Info("Recording payout failure",
		"vendor_account_id", vendorAccountID.String(),
		"error_kind", record.ErrorKind,
		"retry_count", retryCount,
		"requires_manual_review", requiresManualReview,
	)

	if err := r.failureRepo.Create(ctx, record); err != nil {
		logger.Error("Failed to archive payout failure", "vendor_account_id", vendorAccountID.String(), "error", err)
		return err
	}

	if requiresManualReview {
		event := &shared.PayoutEvent{
			Type:            shared.PayoutEventManualReview,
			VendorAccountID: vendorAccountID,
			ErrorKind:       record.ErrorKind,
			ErrorMessage:    record.ErrorMessage,
			CorrelationID:   correlationID,
			OccurredAt:      record.CreatedAt,
		}
		if payoutRecordID != nil {
			event.PayoutRecordID = *payoutRecordID
		}
		if err := r.producer.Publish(ctx, vendorAccountID.String(), event); err != nil {
			logger.Error("Failed to publish manual review event", "vendor_account_id", vendorAccountID.String(), "error", err)
		}
	}

	return nil
}
