package payout

import (
	"time"

	"github.com/google/uuid"
)

// RecordStatus defines payout record states. ReconciliationRequired marks the
// ambiguous state after a successful transfer whose follow-up payout call
// failed; it is surfaced for manual reconciliation and never auto-resolved.
type RecordStatus string

const (
	StatusProcessing             RecordStatus = "processing"
	StatusPaid                   RecordStatus = "paid"
	StatusFailed                 RecordStatus = "failed"
	StatusInTransit              RecordStatus = "in_transit"
	StatusReconciliationRequired RecordStatus = "reconciliation_required"
)

// Record represents one executed (or attempted) transfer of accumulated
// vendor earnings. Amount is immutable after creation and must equal the sum
// of the line item net amounts.
type Record struct {
	ID                 uuid.UUID    `json:"id"`
	VendorAccountID    uuid.UUID    `json:"vendor_account_id"`
	Amount             int64        `json:"amount"` // Net, post-fee, minor units
	FeeAmount          int64        `json:"fee_amount"`
	Currency           string       `json:"currency"`
	Status             RecordStatus `json:"status"`
	PeriodStart        time.Time    `json:"period_start"`
	PeriodEnd          time.Time    `json:"period_end"`
	ExternalTransferRef string      `json:"external_transfer_ref,omitempty"`
	ExternalPayoutRef  string       `json:"external_payout_ref,omitempty"`
	IdempotencyKey     string       `json:"idempotency_key"`
	ArrivalDate        *time.Time   `json:"arrival_date,omitempty"`
	BookingCount       int          `json:"booking_count"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// LineItem links a payout record to a ledger entry with an amount snapshot
// taken at selection time. Line items form the audit trail and are never
// mutated after creation.
type LineItem struct {
	ID             uuid.UUID `json:"id"`
	PayoutRecordID uuid.UUID `json:"payout_record_id"`
	LedgerEntryID  uuid.UUID `json:"ledger_entry_id"`
	GrossAmount    int64     `json:"gross_amount"`
	FeeAmount      int64     `json:"fee_amount"`
	NetAmount      int64     `json:"net_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary aggregates payout totals and a status breakdown for a vendor
type Summary struct {
	VendorAccountID uuid.UUID        `json:"vendor_account_id"`
	TotalPaid       int64            `json:"total_paid"`
	TotalFees       int64            `json:"total_fees"`
	PayoutCount     int64            `json:"payout_count"`
	StatusCounts    map[string]int64 `json:"status_counts"`
}

// HistoryFilter narrows payout history queries
type HistoryFilter struct {
	Status RecordStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
