package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// EligibleForPayout returns entries with payout_status=eligible for a
	// vendor, oldest first. Ordering is load-bearing: batch selection is
	// FIFO over creation time.
	EligibleForPayout(ctx context.Context, vendorAccountID uuid.UUID) ([]*Entry, error)

	// PendingEligibleAmount sums the net amount of eligible entries for a vendor
	PendingEligibleAmount(ctx context.Context, vendorAccountID uuid.UUID) (int64, error)

	// ClaimForPayout reserves entries for an in-flight payout record by
	// moving them from eligible to claimed. Only entries still eligible are
	// updated; the returned count lets callers detect a partial claim.
	ClaimForPayout(ctx context.Context, entryIDs []uuid.UUID, payoutRecordID uuid.UUID) (int64, error)

	// MarkPaidOut completes the one-time transition of a record's claimed
	// entries to paid_out, on successful payout finalization
	MarkPaidOut(ctx context.Context, payoutRecordID uuid.UUID) (int64, error)

	// MarkEligible promotes completed entries older than the vendor's hold
	// period from pending to eligible
	MarkEligible(ctx context.Context, vendorAccountID uuid.UUID, holdPeriodDays int) (int64, error)

	// ReleaseFromPayout reverts the claimed entries of a failed payout record
	// back to eligible so a later run can pick them up again
	ReleaseFromPayout(ctx context.Context, payoutRecordID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates settlement event replay
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is matches any ErrDuplicateEntry when the target carries a nil ID
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
