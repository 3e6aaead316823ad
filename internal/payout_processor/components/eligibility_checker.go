package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
)

type EligibilityCheckerImpl struct {
	vendorRepo vendor.Repository
	logger     *slog.Logger
}

func NewEligibilityChecker(vendorRepo vendor.Repository, logger *slog.Logger) service.EligibilityChecker {
	return &EligibilityCheckerImpl{
		vendorRepo: vendorRepo,
		logger:     logger,
	}
}

// Check verifies the account may receive a payout: active status, payouts
// enabled, and no active administrative hold.
func (c *EligibilityCheckerImpl) Check(ctx context.Context, account *vendor.Account) error {
	if !account.Eligible() {
		c.logger.Info("Vendor not eligible for payout",
			"vendor_account_id", account.ID.String(),
			"status", account.Status,
			"payouts_enabled", account.PayoutsEnabled,
		)
		return shared.NewPayoutError(shared.KindEligibility,
			fmt.Sprintf("vendor account is %s with payouts_enabled=%t", account.Status, account.PayoutsEnabled)).
			WithDetail("vendor_account_id", account.ID.String())
	}

	holds, err := c.vendorRepo.ActiveHolds(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to check payout holds for vendor %s: %w", account.ID.String(), err)
	}
	if len(holds) > 0 {
		c.logger.Info("Vendor has active payout hold",
			"vendor_account_id", account.ID.String(),
			"hold_id", holds[0].ID.String(),
			"reason", holds[0].Reason,
		)
		return shared.NewPayoutError(shared.KindEligibility, "vendor has an active payout hold").
			WithDetail("vendor_account_id", account.ID.String()).
			WithDetail("hold_reason", holds[0].Reason)
	}

	return nil
}
