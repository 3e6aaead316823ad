// Package scheduler maintains the payout job registry from vendor account
// configuration. Vendor accounts are the source of truth; the registry is a
// derived, in-process cache rebuilt from them at startup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/domain/schedule"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
)

type Scheduler struct {
	registry   *schedule.Registry
	vendorRepo vendor.Repository
	logger     *slog.Logger
}

func NewScheduler(registry *schedule.Registry, vendorRepo vendor.Repository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		registry:   registry,
		vendorRepo: vendorRepo,
		logger:     logger,
	}
}

// ScheduleVendor registers (or replaces) the payout job for a vendor. The
// next execution is recomputed from the account's interval; replacing the
// registry entry is what cancels a stale pending schedule after a
// configuration change. The last-executed timestamp survives rescheduling so
// a biweekly cadence keeps its anchor.
func (s *Scheduler) ScheduleVendor(account *vendor.Account, now time.Time) *schedule.Job {
	var lastExecuted *time.Time
	if existing, ok := s.registry.Get(account.ID); ok {
		lastExecuted = existing.LastExecuted
	}

	job := &schedule.Job{
		VendorAccountID:     account.ID,
		Interval:            account.ScheduleInterval,
		MinimumPayoutAmount: account.MinimumPayoutAmount,
		NextExecution:       schedule.ComputeNextExecution(account.ScheduleInterval, lastExecuted, now),
		Status:              schedule.JobScheduled,
		LastExecuted:        lastExecuted,
	}
	s.registry.Upsert(job)

	s.logger.Info("Scheduled vendor payout job",
		"vendor_account_id", account.ID.String(),
		"interval", job.Interval,
		"next_execution", job.NextExecution,
	)
	return job
}

// Unschedule removes the vendor's payout job
func (s *Scheduler) Unschedule(vendorAccountID uuid.UUID) {
	s.registry.Remove(vendorAccountID)
	s.logger.Info("Unscheduled vendor payout job", "vendor_account_id", vendorAccountID.String())
}

// Rehydrate rebuilds the registry from every payout-enabled vendor account.
// Called once at startup; a restart therefore recovers all schedules without
// persisting jobs anywhere.
func (s *Scheduler) Rehydrate(ctx context.Context) (int, error) {
	accounts, err := s.vendorRepo.ListPayoutEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to rehydrate payout schedules: %w", err)
	}

	now := time.Now()
	for _, account := range accounts {
		s.ScheduleVendor(account, now)
	}

	s.logger.Info("Rehydrated payout schedules", "count", len(accounts))
	return len(accounts), nil
}
