package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/platform/persistence"
)

// PayoutRepository implements the payout.Repository interface for PostgreSQL
type PayoutRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPayoutRepository creates a new PostgreSQL payout repository
func NewPayoutRepository(logger *slog.Logger, db *persistence.PostgresDB) payout.Repository {
	return &PayoutRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *PayoutRepository) WithTx(tx pgx.Tx) payout.Repository {
	return &PayoutRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateWithLineItems persists a payout record and its line items. Run inside
// a transaction via WithTx: the record must never exist without its items.
func (r *PayoutRepository) CreateWithLineItems(ctx context.Context, record *payout.Record, items []*payout.LineItem) error {
	recordQuery := `
		INSERT INTO payout_records (id, vendor_account_id, amount, fee_amount, currency, status,
			period_start, period_end, external_transfer_ref, external_payout_ref, idempotency_key,
			arrival_date, booking_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, recordQuery,
		record.ID,
		record.VendorAccountID,
		record.Amount,
		record.FeeAmount,
		record.Currency,
		record.Status,
		record.PeriodStart,
		record.PeriodEnd,
		record.ExternalTransferRef,
		record.ExternalPayoutRef,
		record.IdempotencyKey,
		record.ArrivalDate,
		record.BookingCount,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payout record", "payout_record_id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to create payout record: %w", err)
	}

	itemQuery := `
		INSERT INTO payout_line_items (id, payout_record_id, ledger_entry_id, gross_amount, fee_amount, net_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, item := range items {
		if _, err := r.querier.Exec(ctx, itemQuery,
			item.ID,
			item.PayoutRecordID,
			item.LedgerEntryID,
			item.GrossAmount,
			item.FeeAmount,
			item.NetAmount,
			item.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to create payout line item",
				"payout_record_id", record.ID.String(),
				"ledger_entry_id", item.LedgerEntryID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to create payout line item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a payout record by its ID
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*payout.Record, error) {
	query := selectRecordColumns + ` WHERE id = $1`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payout.ErrRecordNotFound{PayoutRecordID: id}
		}
		r.logger.Error("Failed to get payout record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payout record: %w", err)
	}

	return rec, nil
}

// UpdateStatus sets the status of a payout record
func (r *PayoutRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status payout.RecordStatus) error {
	query := `
		UPDATE payout_records
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update payout record status", "id", id.String(), "status", status, "error", err)
		return fmt.Errorf("failed to update payout record status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payout.ErrRecordNotFound{PayoutRecordID: id}
	}

	return nil
}

// Finalize records gateway references, arrival date and terminal status.
// The amount columns are deliberately not touched: the amount is immutable
// after creation.
func (r *PayoutRepository) Finalize(ctx context.Context, record *payout.Record) error {
	query := `
		UPDATE payout_records
		SET status = $1, external_transfer_ref = $2, external_payout_ref = $3, arrival_date = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		record.Status,
		record.ExternalTransferRef,
		record.ExternalPayoutRef,
		record.ArrivalDate,
		record.ID,
	)
	if err != nil {
		r.logger.Error("Failed to finalize payout record", "id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to finalize payout record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payout.ErrRecordNotFound{PayoutRecordID: record.ID}
	}

	return nil
}

// ListByVendor returns payout history for a vendor with status/date filters
func (r *PayoutRepository) ListByVendor(ctx context.Context, vendorAccountID uuid.UUID, filter payout.HistoryFilter) ([]*payout.Record, error) {
	query, args := buildHistoryQuery(selectRecordColumns, vendorAccountID, filter, true)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list payout records", "vendor_account_id", vendorAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list payout records: %w", err)
	}
	defer rows.Close()

	var records []*payout.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout records: %w", err)
	}

	return records, nil
}

// CountByVendor counts payout records matching the filter
func (r *PayoutRepository) CountByVendor(ctx context.Context, vendorAccountID uuid.UUID, filter payout.HistoryFilter) (int64, error) {
	query, args := buildHistoryQuery(`SELECT COUNT(*) FROM payout_records`, vendorAccountID, filter, false)

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count payout records", "vendor_account_id", vendorAccountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count payout records: %w", err)
	}

	return count, nil
}

// SummaryByVendor aggregates totals and a status breakdown for a vendor
func (r *PayoutRepository) SummaryByVendor(ctx context.Context, vendorAccountID uuid.UUID) (*payout.Summary, error) {
	totalsQuery := `
		SELECT COALESCE(SUM(amount) FILTER (WHERE status = $2), 0),
			COALESCE(SUM(fee_amount) FILTER (WHERE status = $2), 0),
			COUNT(*)
		FROM payout_records
		WHERE vendor_account_id = $1
	`

	summary := &payout.Summary{
		VendorAccountID: vendorAccountID,
		StatusCounts:    make(map[string]int64),
	}
	err := r.querier.QueryRow(ctx, totalsQuery, vendorAccountID, payout.StatusPaid).Scan(
		&summary.TotalPaid,
		&summary.TotalFees,
		&summary.PayoutCount,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate payout totals", "vendor_account_id", vendorAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to aggregate payout totals: %w", err)
	}

	breakdownQuery := `
		SELECT status, COUNT(*)
		FROM payout_records
		WHERE vendor_account_id = $1
		GROUP BY status
	`

	rows, err := r.querier.Query(ctx, breakdownQuery, vendorAccountID)
	if err != nil {
		r.logger.Error("Failed to aggregate payout status breakdown", "vendor_account_id", vendorAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to aggregate payout status breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan payout status breakdown: %w", err)
		}
		summary.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout status breakdown: %w", err)
	}

	return summary, nil
}

// LineItems returns the line items of a payout record
func (r *PayoutRepository) LineItems(ctx context.Context, payoutRecordID uuid.UUID) ([]*payout.LineItem, error) {
	query := `
		SELECT id, payout_record_id, ledger_entry_id, gross_amount, fee_amount, net_amount, created_at
		FROM payout_line_items
		WHERE payout_record_id = $1
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, payoutRecordID)
	if err != nil {
		r.logger.Error("Failed to list payout line items", "payout_record_id", payoutRecordID.String(), "error", err)
		return nil, fmt.Errorf("failed to list payout line items: %w", err)
	}
	defer rows.Close()

	var items []*payout.LineItem
	for rows.Next() {
		var item payout.LineItem
		if err := rows.Scan(
			&item.ID,
			&item.PayoutRecordID,
			&item.LedgerEntryID,
			&item.GrossAmount,
			&item.FeeAmount,
			&item.NetAmount,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payout line item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout line items: %w", err)
	}

	return items, nil
}

const selectRecordColumns = `
	SELECT id, vendor_account_id, amount, fee_amount, currency, status,
		period_start, period_end, external_transfer_ref, external_payout_ref, idempotency_key,
		arrival_date, booking_count, created_at, updated_at
	FROM payout_records`

func buildHistoryQuery(base string, vendorAccountID uuid.UUID, filter payout.HistoryFilter, paginate bool) (string, []interface{}) {
	query := base + ` WHERE vendor_account_id = $1`
	args := []interface{}{vendorAccountID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	if paginate {
		query += " ORDER BY created_at DESC"
		limit := filter.Limit
		if limit <= 0 {
			limit = 50
		}
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}

func scanRecord(row pgx.Row) (*payout.Record, error) {
	var rec payout.Record
	var arrival *time.Time
	err := row.Scan(
		&rec.ID,
		&rec.VendorAccountID,
		&rec.Amount,
		&rec.FeeAmount,
		&rec.Currency,
		&rec.Status,
		&rec.PeriodStart,
		&rec.PeriodEnd,
		&rec.ExternalTransferRef,
		&rec.ExternalPayoutRef,
		&rec.IdempotencyKey,
		&arrival,
		&rec.BookingCount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ArrivalDate = arrival
	return &rec, nil
}
