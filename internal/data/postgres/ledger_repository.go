package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/platform/persistence"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new ledger entry. Settlement events can be redelivered, so
// an existing entry with the same ID is reported as ErrDuplicateEntry.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, vendor_account_id, gross_amount, net_amount, fee_amount,
			currency, status, payout_status, payout_record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.VendorAccountID,
		entry.GrossAmount,
		entry.NetAmount,
		entry.FeeAmount,
		entry.Currency,
		entry.Status,
		entry.PayoutStatus,
		entry.PayoutRecordID,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrDuplicateEntry{EntryID: entry.ID}
	}

	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT id, vendor_account_id, gross_amount, net_amount, fee_amount,
			currency, status, payout_status, payout_record_id, created_at
		FROM ledger_entries
		WHERE id = $1
	`

	var e ledger.Entry
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.VendorAccountID,
		&e.GrossAmount,
		&e.NetAmount,
		&e.FeeAmount,
		&e.Currency,
		&e.Status,
		&e.PayoutStatus,
		&e.PayoutRecordID,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &e, nil
}

// EligibleForPayout returns eligible entries for a vendor, oldest first.
// The ordering feeds the FIFO batch selector directly.
func (r *LedgerRepository) EligibleForPayout(ctx context.Context, vendorAccountID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT id, vendor_account_id, gross_amount, net_amount, fee_amount,
			currency, status, payout_status, payout_record_id, created_at
		FROM ledger_entries
		WHERE vendor_account_id = $1 AND status = $2 AND payout_status = $3
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, vendorAccountID, ledger.EntryStatusCompleted, ledger.PayoutStatusEligible)
	if err != nil {
		r.logger.Error("Failed to list eligible ledger entries", "vendor_account_id", vendorAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list eligible ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(
			&e.ID,
			&e.VendorAccountID,
			&e.GrossAmount,
			&e.NetAmount,
			&e.FeeAmount,
			&e.Currency,
			&e.Status,
			&e.PayoutStatus,
			&e.PayoutRecordID,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// PendingEligibleAmount sums the net amount of eligible entries for a vendor
func (r *LedgerRepository) PendingEligibleAmount(ctx context.Context, vendorAccountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(net_amount), 0)
		FROM ledger_entries
		WHERE vendor_account_id = $1 AND status = $2 AND payout_status = $3
	`

	var total int64
	err := r.querier.QueryRow(ctx, query, vendorAccountID, ledger.EntryStatusCompleted, ledger.PayoutStatusEligible).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum eligible ledger entries", "vendor_account_id", vendorAccountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum eligible ledger entries: %w", err)
	}

	return total, nil
}

// ClaimForPayout reserves entries for an in-flight payout record. The
// eligible-status guard keeps two concurrent payouts from claiming the same
// entry: a row already claimed or paid out is not updated again.
func (r *LedgerRepository) ClaimForPayout(ctx context.Context, entryIDs []uuid.UUID, payoutRecordID uuid.UUID) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE ledger_entries
		SET payout_status = $1, payout_record_id = $2
		WHERE id = ANY($3) AND payout_status = $4
	`

	result, err := r.querier.Exec(ctx, query, ledger.PayoutStatusClaimed, payoutRecordID, entryIDs, ledger.PayoutStatusEligible)
	if err != nil {
		r.logger.Error("Failed to claim ledger entries for payout", "payout_record_id", payoutRecordID.String(), "error", err)
		return 0, fmt.Errorf("failed to claim ledger entries for payout: %w", err)
	}

	return result.RowsAffected(), nil
}

// MarkPaidOut transitions the claimed entries of a settled payout record to
// paid_out. The claimed-status guard makes the transition one-time.
func (r *LedgerRepository) MarkPaidOut(ctx context.Context, payoutRecordID uuid.UUID) (int64, error) {
	query := `
		UPDATE ledger_entries
		SET payout_status = $1
		WHERE payout_record_id = $2 AND payout_status = $3
	`

	result, err := r.querier.Exec(ctx, query, ledger.PayoutStatusPaidOut, payoutRecordID, ledger.PayoutStatusClaimed)
	if err != nil {
		r.logger.Error("Failed to mark ledger entries paid out", "payout_record_id", payoutRecordID.String(), "error", err)
		return 0, fmt.Errorf("failed to mark ledger entries paid out: %w", err)
	}

	return result.RowsAffected(), nil
}

// ReleaseFromPayout reverts the claimed entries of a failed payout record back
// to eligible. The transfer never happened, so the funds are still owed.
func (r *LedgerRepository) ReleaseFromPayout(ctx context.Context, payoutRecordID uuid.UUID) (int64, error) {
	query := `
		UPDATE ledger_entries
		SET payout_status = $1, payout_record_id = NULL
		WHERE payout_record_id = $2 AND payout_status = $3
	`

	result, err := r.querier.Exec(ctx, query, ledger.PayoutStatusEligible, payoutRecordID, ledger.PayoutStatusClaimed)
	if err != nil {
		r.logger.Error("Failed to release ledger entries from payout", "payout_record_id", payoutRecordID.String(), "error", err)
		return 0, fmt.Errorf("failed to release ledger entries from payout: %w", err)
	}

	return result.RowsAffected(), nil
}

// MarkEligible promotes completed entries older than the vendor's hold period
// from pending to eligible
func (r *LedgerRepository) MarkEligible(ctx context.Context, vendorAccountID uuid.UUID, holdPeriodDays int) (int64, error) {
	query := `
		UPDATE ledger_entries
		SET payout_status = $1
		WHERE vendor_account_id = $2 AND status = $3 AND payout_status = $4
			AND created_at <= NOW() - make_interval(days => $5)
	`

	result, err := r.querier.Exec(ctx, query,
		ledger.PayoutStatusEligible,
		vendorAccountID,
		ledger.EntryStatusCompleted,
		ledger.PayoutStatusPending,
		holdPeriodDays,
	)
	if err != nil {
		r.logger.Error("Failed to mark ledger entries eligible", "vendor_account_id", vendorAccountID.String(), "error", err)
		return 0, fmt.Errorf("failed to mark ledger entries eligible: %w", err)
	}

	return result.RowsAffected(), nil
}
