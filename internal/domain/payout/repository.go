package payout

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages payout record and line item persistence
type Repository interface {
	// CreateWithLineItems persists a record and its line items. Callers run
	// this inside a transaction via WithTx so the write is all-or-nothing.
	CreateWithLineItems(ctx context.Context, record *Record, items []*LineItem) error

	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status RecordStatus) error

	// Finalize records the gateway references and terminal status in one update
	Finalize(ctx context.Context, record *Record) error

	ListByVendor(ctx context.Context, vendorAccountID uuid.UUID, filter HistoryFilter) ([]*Record, error)
	CountByVendor(ctx context.Context, vendorAccountID uuid.UUID, filter HistoryFilter) (int64, error)
	SummaryByVendor(ctx context.Context, vendorAccountID uuid.UUID) (*Summary, error)
	LineItems(ctx context.Context, payoutRecordID uuid.UUID) ([]*LineItem, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRecordNotFound indicates missing payout record
type ErrRecordNotFound struct {
	PayoutRecordID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "payout record not found: " + e.PayoutRecordID.String()
}

// Is matches any ErrRecordNotFound when the target carries a nil ID
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.PayoutRecordID == uuid.Nil {
		return true
	}
	return e.PayoutRecordID == t.PayoutRecordID
}
