// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the payout service.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/platform/persistence"
)

// VendorRepository implements the vendor.Repository interface for PostgreSQL
type VendorRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewVendorRepository creates a new PostgreSQL vendor repository
func NewVendorRepository(logger *slog.Logger, db *persistence.PostgresDB) vendor.Repository {
	return &VendorRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *VendorRepository) WithTx(tx pgx.Tx) vendor.Repository {
	return &VendorRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new vendor account
func (r *VendorRepository) Create(ctx context.Context, acc *vendor.Account) error {
	query := `
		INSERT INTO vendor_accounts (id, external_account_ref, status, payouts_enabled, fee_percent,
			schedule_interval, minimum_payout_amount, hold_period_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.ExternalAccountRef,
		acc.Status,
		acc.PayoutsEnabled,
		acc.FeePercent,
		acc.ScheduleInterval,
		acc.MinimumPayoutAmount,
		acc.HoldPeriodDays,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create vendor account", "error", err)
		return fmt.Errorf("failed to create vendor account: %w", err)
	}

	return nil
}

// GetByID retrieves a vendor account by its ID
func (r *VendorRepository) GetByID(ctx context.Context, id uuid.UUID) (*vendor.Account, error) {
	query := `
		SELECT id, external_account_ref, status, payouts_enabled, fee_percent,
			schedule_interval, minimum_payout_amount, hold_period_days, created_at, updated_at
		FROM vendor_accounts
		WHERE id = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vendor.ErrAccountNotFound{VendorAccountID: id}
		}
		r.logger.Error("Failed to get vendor account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get vendor account: %w", err)
	}

	return acc, nil
}

// Update updates a vendor account's configuration
func (r *VendorRepository) Update(ctx context.Context, acc *vendor.Account) error {
	query := `
		UPDATE vendor_accounts
		SET external_account_ref = $1, status = $2, payouts_enabled = $3, fee_percent = $4,
			schedule_interval = $5, minimum_payout_amount = $6, hold_period_days = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := r.querier.Exec(ctx, query,
		acc.ExternalAccountRef,
		acc.Status,
		acc.PayoutsEnabled,
		acc.FeePercent,
		acc.ScheduleInterval,
		acc.MinimumPayoutAmount,
		acc.HoldPeriodDays,
		acc.UpdatedAt,
		acc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update vendor account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update vendor account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return vendor.ErrAccountNotFound{VendorAccountID: acc.ID}
	}

	return nil
}

// ListPayoutEnabled returns active accounts with payouts enabled, used to
// rehydrate the schedule registry at startup
func (r *VendorRepository) ListPayoutEnabled(ctx context.Context) ([]*vendor.Account, error) {
	query := `
		SELECT id, external_account_ref, status, payouts_enabled, fee_percent,
			schedule_interval, minimum_payout_amount, hold_period_days, created_at, updated_at
		FROM vendor_accounts
		WHERE status = $1 AND payouts_enabled = true
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, vendor.StatusActive)
	if err != nil {
		r.logger.Error("Failed to list payout-enabled vendor accounts", "error", err)
		return nil, fmt.Errorf("failed to list payout-enabled vendor accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*vendor.Account
	for rows.Next() {
		acc, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vendor accounts: %w", err)
	}

	return accounts, nil
}

// ActiveHolds returns the active payout holds for a vendor
func (r *VendorRepository) ActiveHolds(ctx context.Context, vendorAccountID uuid.UUID) ([]*vendor.Hold, error) {
	query := `
		SELECT id, vendor_account_id, reason, status, created_at, lifted_at
		FROM payout_holds
		WHERE vendor_account_id = $1 AND status = $2
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, vendorAccountID, vendor.HoldActive)
	if err != nil {
		r.logger.Error("Failed to list active holds", "vendor_account_id", vendorAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list active holds: %w", err)
	}
	defer rows.Close()

	var holds []*vendor.Hold
	for rows.Next() {
		var h vendor.Hold
		if err := rows.Scan(&h.ID, &h.VendorAccountID, &h.Reason, &h.Status, &h.CreatedAt, &h.LiftedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout hold: %w", err)
		}
		holds = append(holds, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout holds: %w", err)
	}

	return holds, nil
}

// CreateHold stores a new payout hold
func (r *VendorRepository) CreateHold(ctx context.Context, hold *vendor.Hold) error {
	query := `
		INSERT INTO payout_holds (id, vendor_account_id, reason, status, created_at, lifted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		hold.ID,
		hold.VendorAccountID,
		hold.Reason,
		hold.Status,
		hold.CreatedAt,
		hold.LiftedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payout hold", "vendor_account_id", hold.VendorAccountID.String(), "error", err)
		return fmt.Errorf("failed to create payout hold: %w", err)
	}

	return nil
}

// LiftHold marks a hold as lifted
func (r *VendorRepository) LiftHold(ctx context.Context, holdID uuid.UUID) error {
	query := `
		UPDATE payout_holds
		SET status = $1, lifted_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, vendor.HoldLifted, holdID, vendor.HoldActive)
	if err != nil {
		r.logger.Error("Failed to lift payout hold", "hold_id", holdID.String(), "error", err)
		return fmt.Errorf("failed to lift payout hold: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no active hold found: %s", holdID.String())
	}

	return nil
}

func (r *VendorRepository) scanAccount(row pgx.Row) (*vendor.Account, error) {
	var acc vendor.Account
	err := row.Scan(
		&acc.ID,
		&acc.ExternalAccountRef,
		&acc.Status,
		&acc.PayoutsEnabled,
		&acc.FeePercent,
		&acc.ScheduleInterval,
		&acc.MinimumPayoutAmount,
		&acc.HoldPeriodDays,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
