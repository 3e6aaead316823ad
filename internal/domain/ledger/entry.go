package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus defines settlement states for a ledger entry
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

// PayoutStatus tracks whether an entry has been included in a payout.
// Claimed marks entries reserved by an in-flight payout record: a failed
// transfer releases them back to eligible, a settled payout moves them to
// paid_out, and a reconciliation-required payout leaves them claimed until an
// operator resolves the gap.
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusEligible PayoutStatus = "eligible"
	PayoutStatusClaimed  PayoutStatus = "claimed"
	PayoutStatusPaidOut  PayoutStatus = "paid_out"
)

// Entry represents a settled customer payment owed to a vendor. Entries are
// append-only: after creation only PayoutStatus and PayoutRecordID change, and
// the transition to paid_out happens at most once, on successful payout
// finalization, pointing at exactly one payout record.
type Entry struct {
	ID              uuid.UUID    `json:"id"`
	VendorAccountID uuid.UUID    `json:"vendor_account_id"`
	GrossAmount     int64        `json:"gross_amount"` // Minor units
	NetAmount       int64        `json:"net_amount"`
	FeeAmount       int64        `json:"fee_amount"`
	Currency        string       `json:"currency"`
	Status          EntryStatus  `json:"status"`
	PayoutStatus    PayoutStatus `json:"payout_status"`
	PayoutRecordID  *uuid.UUID   `json:"payout_record_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}
