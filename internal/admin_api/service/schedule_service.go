package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/domain/schedule"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/scheduler"
)

// ScheduleServiceImpl implements the ScheduleService interface
type ScheduleServiceImpl struct {
	vendorRepo vendor.Repository
	registry   *schedule.Registry
	scheduler  *scheduler.Scheduler
}

// NewScheduleService creates a new schedule service
func NewScheduleService(vendorRepo vendor.Repository, registry *schedule.Registry, sched *scheduler.Scheduler) ScheduleService {
	return &ScheduleServiceImpl{
		vendorRepo: vendorRepo,
		registry:   registry,
		scheduler:  sched,
	}
}

// UpdateSchedule persists the new cadence on the vendor account, then
// replaces the registry job so the pending schedule is recomputed from the
// new interval. The old next-execution time is discarded, not migrated.
func (s *ScheduleServiceImpl) UpdateSchedule(ctx context.Context, vendorAccountID uuid.UUID, interval shared.ScheduleInterval, minimumAmount int64) (*schedule.Job, error) {
	if !interval.Valid() {
		return nil, vendor.ErrInvalidInterval
	}
	if minimumAmount < 0 {
		return nil, vendor.ErrNegativeMinimum
	}

	account, err := s.vendorRepo.GetByID(ctx, vendorAccountID)
	if err != nil {
		return nil, err
	}

	account.ScheduleInterval = interval
	account.MinimumPayoutAmount = minimumAmount
	account.UpdatedAt = time.Now()
	if err := s.vendorRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	if !account.Eligible() {
		// Not receiving payouts yet; the job is registered on activation
		s.registry.Remove(account.ID)
		return nil, nil
	}

	return s.scheduler.ScheduleVendor(account, time.Now()), nil
}

// GetSchedule returns the vendor's current job state
func (s *ScheduleServiceImpl) GetSchedule(ctx context.Context, vendorAccountID uuid.UUID) (*schedule.Job, error) {
	// Confirm the vendor exists so an unknown ID is a 404, not an empty job
	if _, err := s.vendorRepo.GetByID(ctx, vendorAccountID); err != nil {
		return nil, err
	}

	job, ok := s.registry.Get(vendorAccountID)
	if !ok {
		return nil, nil
	}
	return job, nil
}
