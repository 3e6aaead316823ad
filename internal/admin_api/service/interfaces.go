package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/schedule"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
)

// CreateVendorParams carries the configuration for a new vendor account
type CreateVendorParams struct {
	ExternalAccountRef  string
	FeePercent          decimal.Decimal
	ScheduleInterval    shared.ScheduleInterval
	MinimumPayoutAmount int64
	HoldPeriodDays      int
}

// UpdateVendorParams carries a partial vendor account update; nil fields are
// left unchanged
type UpdateVendorParams struct {
	Status             *vendor.AccountStatus
	PayoutsEnabled     *bool
	FeePercent         *decimal.Decimal
	ExternalAccountRef *string
	HoldPeriodDays     *int
}

// VendorService defines the interface for vendor account administration
type VendorService interface {
	// CreateVendor creates a new vendor account in the pending state.
	// Accounts do not receive payouts until activated and enabled.
	CreateVendor(ctx context.Context, params CreateVendorParams) (*vendor.Account, error)

	// GetVendor retrieves a vendor account by its ID
	// Returns vendor.ErrAccountNotFound if the account doesn't exist
	GetVendor(ctx context.Context, id uuid.UUID) (*vendor.Account, error)

	// UpdateVendor applies a partial update and keeps the payout schedule in
	// sync: enabling payouts registers the job, disabling removes it
	UpdateVendor(ctx context.Context, id uuid.UUID, params UpdateVendorParams) (*vendor.Account, error)

	// PlaceHold blocks payouts for a vendor until the hold is lifted
	PlaceHold(ctx context.Context, vendorAccountID uuid.UUID, reason string) (*vendor.Hold, error)

	// LiftHold releases an active hold
	LiftHold(ctx context.Context, vendorAccountID uuid.UUID, holdID uuid.UUID) error

	// ListHolds returns the active holds for a vendor
	ListHolds(ctx context.Context, vendorAccountID uuid.UUID) ([]*vendor.Hold, error)
}

// ScheduleService defines the interface for payout schedule administration
type ScheduleService interface {
	// UpdateSchedule changes a vendor's payout cadence and minimum, and
	// recomputes the pending job so the change takes effect immediately
	UpdateSchedule(ctx context.Context, vendorAccountID uuid.UUID, interval shared.ScheduleInterval, minimumAmount int64) (*schedule.Job, error)

	// GetSchedule returns the vendor's current job state
	GetSchedule(ctx context.Context, vendorAccountID uuid.UUID) (*schedule.Job, error)
}

// PayoutAdminService defines the interface for payout operations and queries
type PayoutAdminService interface {
	// TriggerPayout runs a payout for the vendor right now. Force bypasses
	// the minimum amount threshold; amount > 0 caps the batch.
	TriggerPayout(ctx context.Context, vendorAccountID uuid.UUID, amount int64, force bool, correlationID string) (*payout.Record, error)

	// ListPayouts returns payout history with filters plus the total count
	ListPayouts(ctx context.Context, vendorAccountID uuid.UUID, filter payout.HistoryFilter) ([]*payout.Record, int64, error)

	// Summary aggregates payout totals and a status breakdown for a vendor
	Summary(ctx context.Context, vendorAccountID uuid.UUID) (*payout.Summary, error)

	// GetPayout returns one payout record with its line items
	GetPayout(ctx context.Context, payoutRecordID uuid.UUID) (*payout.Record, []*payout.LineItem, error)

	// ListFailuresRequiringReview returns the manual review queue
	ListFailuresRequiringReview(ctx context.Context, limit, offset int) ([]*payout.FailureRecord, error)
}
