package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
)

// ErrBelowMinimum signals that the vendor's eligible balance does not reach
// the effective minimum payout amount. It is a no-op for the dispatcher, not
// a failure: the job reschedules without touching its retry count.
var ErrBelowMinimum = errors.New("eligible balance below minimum payout amount")

// PayoutService defines the interface for processing payout requests.
type PayoutService interface {
	ProcessPayout(ctx context.Context, request *shared.PayoutRequest) (*payout.Record, error)
}

// TxRunner runs a function inside a single database transaction, rolling
// back on error or panic
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// FeeCalculator computes the platform fee for a gross amount
type FeeCalculator interface {
	Calculate(grossAmount int64, feePercent decimal.Decimal) (feeAmount int64, netAmount int64)
}

// BatchSelector picks the ledger entries to include in one payout
type BatchSelector interface {
	Select(entries []*ledger.Entry, maxAmount int64) []*ledger.Entry
}

// EligibilityChecker validates that a vendor may receive a payout right now
type EligibilityChecker interface {
	Check(ctx context.Context, account *vendor.Account) error
}

// FailureRecorder archives failed payout attempts and raises manual review
// events when a failure cannot be resolved automatically
type FailureRecorder interface {
	RecordFailure(ctx context.Context, vendorAccountID uuid.UUID, payoutRecordID *uuid.UUID, cause error, retryCount int, requiresManualReview bool, correlationID string) error
}
