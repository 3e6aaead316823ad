package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testAccount() *vendor.Account {
	now := time.Now()
	return &vendor.Account{
		ID:                  uuid.New(),
		ExternalAccountRef:  "acct_ext_123",
		Status:              vendor.StatusActive,
		PayoutsEnabled:      true,
		FeePercent:          decimal.NewFromFloat(2.9),
		ScheduleInterval:    shared.IntervalWeekly,
		MinimumPayoutAmount: 1000,
		HoldPeriodDays:      7,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func vendorAccountRows(acc *vendor.Account) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "external_account_ref", "status", "payouts_enabled", "fee_percent",
		"schedule_interval", "minimum_payout_amount", "hold_period_days", "created_at", "updated_at",
	}).AddRow(
		acc.ID, acc.ExternalAccountRef, acc.Status, acc.PayoutsEnabled, acc.FeePercent,
		acc.ScheduleInterval, acc.MinimumPayoutAmount, acc.HoldPeriodDays, acc.CreatedAt, acc.UpdatedAt,
	)
}

func TestVendorRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &VendorRepository{querier: mock, logger: newTestLogger()}
	acc := testAccount()

	query := `
		INSERT INTO vendor_accounts \(id, external_account_ref, status, payouts_enabled, fee_percent,
			schedule_interval, minimum_payout_amount, hold_period_days, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.ExternalAccountRef, acc.Status, acc.PayoutsEnabled, acc.FeePercent,
				acc.ScheduleInterval, acc.MinimumPayoutAmount, acc.HoldPeriodDays, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.ExternalAccountRef, acc.Status, acc.PayoutsEnabled, acc.FeePercent,
				acc.ScheduleInterval, acc.MinimumPayoutAmount, acc.HoldPeriodDays, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create vendor account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVendorRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &VendorRepository{querier: mock, logger: newTestLogger()}
	acc := testAccount()

	query := `
		SELECT id, external_account_ref, status, payouts_enabled, fee_percent,
			schedule_interval, minimum_payout_amount, hold_period_days, created_at, updated_at
		FROM vendor_accounts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnRows(vendorAccountRows(acc))

		got, err := repo.GetByID(ctx, acc.ID)
		assert.NoError(t, err)
		assert.Equal(t, acc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, acc.ID)
		assert.Error(t, err)
		assert.Nil(t, got)
		var notFound vendor.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, acc.ID, notFound.VendorAccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVendorRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &VendorRepository{querier: mock, logger: newTestLogger()}
	acc := testAccount()

	query := `
		UPDATE vendor_accounts
		SET external_account_ref = \$1, status = \$2, payouts_enabled = \$3, fee_percent = \$4,
			schedule_interval = \$5, minimum_payout_amount = \$6, hold_period_days = \$7, updated_at = \$8
		WHERE id = \$9
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ExternalAccountRef, acc.Status, acc.PayoutsEnabled, acc.FeePercent,
				acc.ScheduleInterval, acc.MinimumPayoutAmount, acc.HoldPeriodDays, acc.UpdatedAt, acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Update(ctx, acc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ExternalAccountRef, acc.Status, acc.PayoutsEnabled, acc.FeePercent,
				acc.ScheduleInterval, acc.MinimumPayoutAmount, acc.HoldPeriodDays, acc.UpdatedAt, acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, acc)
		var notFound vendor.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVendorRepository_ListPayoutEnabled(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &VendorRepository{querier: mock, logger: newTestLogger()}
	acc := testAccount()

	query := `
		SELECT id, external_account_ref, status, payouts_enabled, fee_percent,
			schedule_interval, minimum_payout_amount, hold_period_days, created_at, updated_at
		FROM vendor_accounts
		WHERE status = \$1 AND payouts_enabled = true
		ORDER BY created_at
	`

	mock.ExpectQuery(query).WithArgs(vendor.StatusActive).WillReturnRows(vendorAccountRows(acc))

	accounts, err := repo.ListPayoutEnabled(ctx)
	assert.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, acc.ID, accounts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVendorRepository_Holds(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &VendorRepository{querier: mock, logger: newTestLogger()}
	vendorID := uuid.New()

	t.Run("active holds", func(t *testing.T) {
		hold := &vendor.Hold{
			ID:              uuid.New(),
			VendorAccountID: vendorID,
			Reason:          "chargeback dispute",
			Status:          vendor.HoldActive,
			CreatedAt:       time.Now(),
		}
		rows := pgxmock.NewRows([]string{"id", "vendor_account_id", "reason", "status", "created_at", "lifted_at"}).
			AddRow(hold.ID, hold.VendorAccountID, hold.Reason, hold.Status, hold.CreatedAt, hold.LiftedAt)

		mock.ExpectQuery(`SELECT id, vendor_account_id, reason, status, created_at, lifted_at`).
			WithArgs(vendorID, vendor.HoldActive).
			WillReturnRows(rows)

		holds, err := repo.ActiveHolds(ctx, vendorID)
		assert.NoError(t, err)
		require.Len(t, holds, 1)
		assert.Equal(t, hold.Reason, holds[0].Reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lift missing hold", func(t *testing.T) {
		holdID := uuid.New()
		mock.ExpectExec(`UPDATE payout_holds`).
			WithArgs(vendor.HoldLifted, holdID, vendor.HoldActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.LiftHold(ctx, holdID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no active hold found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
