package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	processor "github.com/vendor-payouts/payout-service/internal/payout_processor/service"
)

// PayoutAdminServiceImpl implements the PayoutAdminService interface
type PayoutAdminServiceImpl struct {
	payoutService processor.PayoutService
	payoutRepo    payout.Repository
	failureRepo   payout.FailureRepository
}

// NewPayoutAdminService creates a new payout admin service
func NewPayoutAdminService(payoutService processor.PayoutService, payoutRepo payout.Repository, failureRepo payout.FailureRepository) PayoutAdminService {
	return &PayoutAdminServiceImpl{
		payoutService: payoutService,
		payoutRepo:    payoutRepo,
		failureRepo:   failureRepo,
	}
}

// TriggerPayout runs a payout for the vendor right now, through the same
// pipeline as scheduled runs, so the per-vendor lock and eligibility rules
// apply identically.
func (s *PayoutAdminServiceImpl) TriggerPayout(ctx context.Context, vendorAccountID uuid.UUID, amount int64, force bool, correlationID string) (*payout.Record, error) {
	request := &shared.PayoutRequest{
		VendorAccountID: vendorAccountID,
		Amount:          amount,
		Force:           force,
		CorrelationID:   correlationID,
		RequestedAt:     time.Now(),
	}
	return s.payoutService.ProcessPayout(ctx, request)
}

// ListPayouts returns payout history with filters plus the total count
func (s *PayoutAdminServiceImpl) ListPayouts(ctx context.Context, vendorAccountID uuid.UUID, filter payout.HistoryFilter) ([]*payout.Record, int64, error) {
	records, err := s.payoutRepo.ListByVendor(ctx, vendorAccountID, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.payoutRepo.CountByVendor(ctx, vendorAccountID, filter)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// Summary aggregates payout totals and a status breakdown for a vendor
func (s *PayoutAdminServiceImpl) Summary(ctx context.Context, vendorAccountID uuid.UUID) (*payout.Summary, error) {
	return s.payoutRepo.SummaryByVendor(ctx, vendorAccountID)
}

// GetPayout returns one payout record with its line items
func (s *PayoutAdminServiceImpl) GetPayout(ctx context.Context, payoutRecordID uuid.UUID) (*payout.Record, []*payout.LineItem, error) {
	record, err := s.payoutRepo.GetByID(ctx, payoutRecordID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.payoutRepo.LineItems(ctx, payoutRecordID)
	if err != nil {
		return nil, nil, err
	}

	return record, items, nil
}

// ListFailuresRequiringReview returns the manual review queue
func (s *PayoutAdminServiceImpl) ListFailuresRequiringReview(ctx context.Context, limit, offset int) ([]*payout.FailureRecord, error) {
	return s.failureRepo.ListRequiringReview(ctx, limit, offset)
}
