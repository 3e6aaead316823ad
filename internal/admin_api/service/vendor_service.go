package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/scheduler"
)

var hundredPercent = decimal.NewFromInt(100)

// VendorServiceImpl implements the VendorService interface
type VendorServiceImpl struct {
	vendorRepo vendor.Repository
	scheduler  *scheduler.Scheduler
}

// NewVendorService creates a new vendor service
func NewVendorService(vendorRepo vendor.Repository, sched *scheduler.Scheduler) VendorService {
	return &VendorServiceImpl{
		vendorRepo: vendorRepo,
		scheduler:  sched,
	}
}

// CreateVendor creates a new vendor account in the pending state
func (s *VendorServiceImpl) CreateVendor(ctx context.Context, params CreateVendorParams) (*vendor.Account, error) {
	account, err := vendor.NewAccount(
		params.ExternalAccountRef,
		params.FeePercent,
		params.ScheduleInterval,
		params.MinimumPayoutAmount,
		params.HoldPeriodDays,
	)
	if err != nil {
		return nil, err
	}

	if err := s.vendorRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetVendor retrieves a vendor account by its ID
func (s *VendorServiceImpl) GetVendor(ctx context.Context, id uuid.UUID) (*vendor.Account, error) {
	return s.vendorRepo.GetByID(ctx, id)
}

// UpdateVendor applies a partial update and keeps the schedule registry in
// sync with the account's payout eligibility
func (s *VendorServiceImpl) UpdateVendor(ctx context.Context, id uuid.UUID, params UpdateVendorParams) (*vendor.Account, error) {
	account, err := s.vendorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Status != nil {
		account.Status = *params.Status
	}
	if params.PayoutsEnabled != nil {
		account.PayoutsEnabled = *params.PayoutsEnabled
	}
	if params.FeePercent != nil {
		if params.FeePercent.IsNegative() || params.FeePercent.GreaterThan(hundredPercent) {
			return nil, vendor.ErrInvalidFeePercent
		}
		account.FeePercent = *params.FeePercent
	}
	if params.ExternalAccountRef != nil {
		if *params.ExternalAccountRef == "" {
			return nil, vendor.ErrEmptyAccountRef
		}
		account.ExternalAccountRef = *params.ExternalAccountRef
	}
	if params.HoldPeriodDays != nil {
		if *params.HoldPeriodDays < 0 {
			return nil, vendor.ErrInvalidHoldPeriod
		}
		account.HoldPeriodDays = *params.HoldPeriodDays
	}
	account.UpdatedAt = time.Now()

	if err := s.vendorRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	if account.Eligible() {
		s.scheduler.ScheduleVendor(account, time.Now())
	} else {
		s.scheduler.Unschedule(account.ID)
	}

	return account, nil
}

// PlaceHold blocks payouts for a vendor until the hold is lifted
func (s *VendorServiceImpl) PlaceHold(ctx context.Context, vendorAccountID uuid.UUID, reason string) (*vendor.Hold, error) {
	if reason == "" {
		return nil, fmt.Errorf("hold reason is required")
	}

	// Verify the vendor exists before creating the hold
	if _, err := s.vendorRepo.GetByID(ctx, vendorAccountID); err != nil {
		return nil, err
	}

	hold := &vendor.Hold{
		ID:              uuid.New(),
		VendorAccountID: vendorAccountID,
		Reason:          reason,
		Status:          vendor.HoldActive,
		CreatedAt:       time.Now(),
	}
	if err := s.vendorRepo.CreateHold(ctx, hold); err != nil {
		return nil, err
	}

	return hold, nil
}

// LiftHold releases an active hold
func (s *VendorServiceImpl) LiftHold(ctx context.Context, vendorAccountID uuid.UUID, holdID uuid.UUID) error {
	if _, err := s.vendorRepo.GetByID(ctx, vendorAccountID); err != nil {
		return err
	}
	return s.vendorRepo.LiftHold(ctx, holdID)
}

// ListHolds returns the active holds for a vendor
func (s *VendorServiceImpl) ListHolds(ctx context.Context, vendorAccountID uuid.UUID) ([]*vendor.Hold, error) {
	return s.vendorRepo.ActiveHolds(ctx, vendorAccountID)
}
