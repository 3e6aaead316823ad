package shared

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleInterval defines the recurring payout cadence for a vendor
type ScheduleInterval string

const (
	IntervalDaily    ScheduleInterval = "daily"
	IntervalWeekly   ScheduleInterval = "weekly"
	IntervalBiweekly ScheduleInterval = "biweekly"
	IntervalMonthly  ScheduleInterval = "monthly"
)

// Valid reports whether the interval is one of the recognized cadences
func (i ScheduleInterval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalBiweekly, IntervalMonthly:
		return true
	}
	return false
}

// PayoutRequest describes one payout attempt for a vendor. Requests originate
// either from the scheduler tick or from a manual admin trigger.
type PayoutRequest struct {
	VendorAccountID uuid.UUID `json:"vendor_account_id"`
	Amount          int64     `json:"amount"` // Minor currency units
	Currency        string    `json:"currency"`
	Description     string    `json:"description"`
	Force           bool      `json:"force"` // Manual trigger bypassing the minimum threshold
	CorrelationID   string    `json:"correlation_id"`
	RequestedAt     time.Time `json:"requested_at"`
}

// SettlementEvent is the message consumed from the settlement topic when a
// customer payment completes. Each event becomes one ledger entry owed to the
// vendor.
type SettlementEvent struct {
	EntryID         uuid.UUID `json:"entry_id"`
	VendorAccountID uuid.UUID `json:"vendor_account_id"`
	GrossAmount     int64     `json:"gross_amount"`
	Currency        string    `json:"currency"`
	CorrelationID   string    `json:"correlation_id"`
	SettledAt       time.Time `json:"settled_at"`
}

// PayoutEventType categorizes the lifecycle events published to Kafka
type PayoutEventType string

const (
	PayoutEventSettled              PayoutEventType = "payout.settled"
	PayoutEventFailed               PayoutEventType = "payout.failed"
	PayoutEventReconciliationNeeded PayoutEventType = "payout.reconciliation_required"
	PayoutEventManualReview         PayoutEventType = "payout.manual_review_required"
)

// PayoutEvent is published after each finalized payout attempt so downstream
// consumers (dashboards, reconciliation tooling) can react without querying.
type PayoutEvent struct {
	Type            PayoutEventType `json:"type"`
	VendorAccountID uuid.UUID       `json:"vendor_account_id"`
	PayoutRecordID  uuid.UUID       `json:"payout_record_id,omitempty"`
	Amount          int64           `json:"amount,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	ErrorKind       string          `json:"error_kind,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CorrelationID   string          `json:"correlation_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
