package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vendor-payouts/payout-service/internal/config"
	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/locks"
	"github.com/vendor-payouts/payout-service/internal/platform/gateway"
)

const (
	testMinimumAmount int64 = 100
	testMaximumAmount int64 = 10000000
)

// Mock implementations of the dependencies

type MockVendorRepo struct {
	mock.Mock
}

func (m *MockVendorRepo) Create(ctx context.Context, acc *vendor.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockVendorRepo) GetByID(ctx context.Context, id uuid.UUID) (*vendor.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.Account), args.Error(1)
}

func (m *MockVendorRepo) Update(ctx context.Context, acc *vendor.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockVendorRepo) ListPayoutEnabled(ctx context.Context) ([]*vendor.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vendor.Account), args.Error(1)
}

func (m *MockVendorRepo) ActiveHolds(ctx context.Context, vendorAccountID uuid.UUID) ([]*vendor.Hold, error) {
	args := m.Called(ctx, vendorAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vendor.Hold), args.Error(1)
}

func (m *MockVendorRepo) CreateHold(ctx context.Context, hold *vendor.Hold) error {
	args := m.Called(ctx, hold)
	return args.Error(0)
}

func (m *MockVendorRepo) LiftHold(ctx context.Context, holdID uuid.UUID) error {
	args := m.Called(ctx, holdID)
	return args.Error(0)
}

func (m *MockVendorRepo) WithTx(tx pgx.Tx) vendor.Repository {
	return m
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) EligibleForPayout(ctx context.Context, vendorAccountID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, vendorAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) PendingEligibleAmount(ctx context.Context, vendorAccountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, vendorAccountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) ClaimForPayout(ctx context.Context, entryIDs []uuid.UUID, payoutRecordID uuid.UUID) (int64, error) {
	args := m.Called(ctx, entryIDs, payoutRecordID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) MarkPaidOut(ctx context.Context, payoutRecordID uuid.UUID) (int64, error) {
	args := m.Called(ctx, payoutRecordID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) ReleaseFromPayout(ctx context.Context, payoutRecordID uuid.UUID) (int64, error) {
	args := m.Called(ctx, payoutRecordID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) MarkEligible(ctx context.Context, vendorAccountID uuid.UUID, holdPeriodDays int) (int64, error) {
	args := m.Called(ctx, vendorAccountID, holdPeriodDays)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockPayoutRepo struct {
	mock.Mock
}

func (m *MockPayoutRepo) CreateWithLineItems(ctx context.Context, record *payout.Record, items []*payout.LineItem) error {
	args := m.Called(ctx, record, items)
	return args.Error(0)
}

func (m *MockPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*payout.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Record), args.Error(1)
}

func (m *MockPayoutRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status payout.RecordStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPayoutRepo) Finalize(ctx context.Context, record *payout.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPayoutRepo) ListByVendor(ctx context.Context, vendorAccountID uuid.UUID, filter payout.HistoryFilter) ([]*payout.Record, error) {
	args := m.Called(ctx, vendorAccountID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payout.Record), args.Error(1)
}

func (m *MockPayoutRepo) CountByVendor(ctx context.Context, vendorAccountID uuid.UUID, filter payout.HistoryFilter) (int64, error) {
	args := m.Called(ctx, vendorAccountID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPayoutRepo) SummaryByVendor(ctx context.Context, vendorAccountID uuid.UUID) (*payout.Summary, error) {
	args := m.Called(ctx, vendorAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Summary), args.Error(1)
}

func (m *MockPayoutRepo) LineItems(ctx context.Context, payoutRecordID uuid.UUID) ([]*payout.LineItem, error) {
	args := m.Called(ctx, payoutRecordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payout.LineItem), args.Error(1)
}

func (m *MockPayoutRepo) WithTx(tx pgx.Tx) payout.Repository {
	return m
}

type MockEligibilityChecker struct {
	mock.Mock
}

func (m *MockEligibilityChecker) Check(ctx context.Context, account *vendor.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, vendorAccountID uuid.UUID, payoutRecordID *uuid.UUID, cause error, retryCount int, requiresManualReview bool, correlationID string) error {
	args := m.Called(ctx, vendorAccountID, payoutRecordID, cause, retryCount, requiresManualReview, correlationID)
	return args.Error(0)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) Transfer(ctx context.Context, req *gateway.TransferRequest) (*gateway.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransferResult), args.Error(1)
}

func (m *MockGatewayClient) Payout(ctx context.Context, req *gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PayoutResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// mockTxRunner runs the transactional function against a stub transaction
type mockTxRunner struct {
	err error
}

func (m *mockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if m.err != nil {
		return m.err
	}
	return fn(&MockTx{})
}

// MockTx implements the pgx.Tx interface for testing
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return m, nil }
func (m *MockTx) Commit(ctx context.Context) error          { return nil }
func (m *MockTx) Rollback(ctx context.Context) error        { return nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                                { return pgx.LargeObjects{} }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// passthroughFeeCalculator applies the fee percent without a mock so amount
// assertions stay readable
type passthroughFeeCalculator struct{}

func (passthroughFeeCalculator) Calculate(grossAmount int64, feePercent decimal.Decimal) (int64, int64) {
	fee := decimal.NewFromInt(grossAmount).Mul(feePercent).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	return fee, grossAmount - fee
}

// greedyBatchSelector mirrors the production FIFO selection
type greedyBatchSelector struct{}

func (greedyBatchSelector) Select(entries []*ledger.Entry, maxAmount int64) []*ledger.Entry {
	if maxAmount <= 0 {
		return entries
	}
	var total int64
	for i, entry := range entries {
		if total+entry.NetAmount > maxAmount {
			return entries[:i]
		}
		total += entry.NetAmount
	}
	return entries
}

type serviceFixture struct {
	vendorRepo      *MockVendorRepo
	ledgerRepo      *MockLedgerRepo
	payoutRepo      *MockPayoutRepo
	eligibility     *MockEligibilityChecker
	failureRecorder *MockFailureRecorder
	gatewayClient   *MockGatewayClient
	producer        *MockPublisher
	lockTable       *locks.VendorLockTable
	service         PayoutService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		vendorRepo:      new(MockVendorRepo),
		ledgerRepo:      new(MockLedgerRepo),
		payoutRepo:      new(MockPayoutRepo),
		eligibility:     new(MockEligibilityChecker),
		failureRecorder: new(MockFailureRecorder),
		gatewayClient:   new(MockGatewayClient),
		producer:        new(MockPublisher),
		lockTable:       locks.NewVendorLockTable(),
	}

	cfg := &config.PayoutConfig{
		MinimumAmount:     testMinimumAmount,
		MaximumAmount:     testMaximumAmount,
		ProcessingTimeout: time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.service = NewPayoutService(
		&mockTxRunner{},
		f.vendorRepo,
		f.ledgerRepo,
		f.payoutRepo,
		passthroughFeeCalculator{},
		greedyBatchSelector{},
		f.eligibility,
		f.failureRecorder,
		f.gatewayClient,
		f.producer,
		f.lockTable,
		cfg,
		logger,
	)
	return f
}

func eligibleEntry(vendorID uuid.UUID, netAmount int64, createdAt time.Time) *ledger.Entry {
	return &ledger.Entry{
		ID:              uuid.New(),
		VendorAccountID: vendorID,
		GrossAmount:     netAmount,
		NetAmount:       netAmount,
		Currency:        "USD",
		Status:          ledger.EntryStatusCompleted,
		PayoutStatus:    ledger.PayoutStatusEligible,
		CreatedAt:       createdAt,
	}
}

func activeVendor(id uuid.UUID) *vendor.Account {
	return &vendor.Account{
		ID:                 id,
		ExternalAccountRef: "acct_ext_123",
		Status:             vendor.StatusActive,
		PayoutsEnabled:     true,
		FeePercent:         decimal.NewFromInt(5),
		ScheduleInterval:   shared.IntervalDaily,
		HoldPeriodDays:     0,
	}
}

func TestProcessPayout_ValidationFailure(t *testing.T) {
	f := newServiceFixture(t)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	f.vendorRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	f.payoutRepo.AssertNotCalled(t, "CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayout_NegativeAmountRejected(t *testing.T) {
	f := newServiceFixture(t)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{
		VendorAccountID: uuid.New(),
		Amount:          -500,
	})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestProcessPayout_AmountAboveMaximumRejected(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{
		VendorAccountID: vendorID,
		Amount:          testMaximumAmount + 1,
	})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	// Rejected before the lock, so no state was touched
	assert.False(t, f.lockTable.Held(vendorID))
	f.vendorRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	f.payoutRepo.AssertNotCalled(t, "CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything)
	f.gatewayClient.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestProcessPayout_ExplicitAmountBelowMinimumRejected(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{
		VendorAccountID: vendorID,
		Amount:          testMinimumAmount - 1,
	})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.False(t, f.lockTable.Held(vendorID))
	f.vendorRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestProcessPayout_ForcedAmountBelowMinimumAccepted(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, testMinimumAmount-1, time.Now().Add(-time.Hour))}

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(&gateway.TransferResult{ID: "tr_1", Status: "succeeded"}, nil)
	f.gatewayClient.On("Payout", mock.Anything, mock.Anything).Return(&gateway.PayoutResult{ID: "po_1", Status: "paid"}, nil)
	f.payoutRepo.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("MarkPaidOut", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{
		VendorAccountID: vendorID,
		Amount:          testMinimumAmount - 1,
		Force:           true,
	})

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, payout.StatusPaid, record.Status)
}

func TestProcessPayout_VendorLockHeld(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	f.lockTable.TryAcquire(vendorID)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindConcurrency, shared.KindOf(err))
	f.vendorRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestProcessPayout_VendorNotFound(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(nil, vendor.ErrAccountNotFound{VendorAccountID: vendorID})

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	assert.False(t, f.lockTable.Held(vendorID), "lock must be released after failure")
}

func TestProcessPayout_IneligibleVendor(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	account.PayoutsEnabled = false

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).
		Return(shared.NewPayoutError(shared.KindEligibility, "vendor is not eligible for payouts"))

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindEligibility, shared.KindOf(err))
	f.ledgerRepo.AssertNotCalled(t, "EligibleForPayout", mock.Anything, mock.Anything)
}

func TestProcessPayout_BelowMinimum(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, 40, time.Now().Add(-time.Hour))}

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.True(t, errors.Is(err, ErrBelowMinimum))
	assert.Equal(t, shared.KindEligibility, shared.KindOf(err))
	f.payoutRepo.AssertNotCalled(t, "CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, f.lockTable.Held(vendorID))
}

func TestProcessPayout_ForceBypassesMinimum(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, 40, time.Now().Add(-time.Hour))}

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(&gateway.TransferResult{ID: "tr_1", Status: "succeeded"}, nil)
	f.gatewayClient.On("Payout", mock.Anything, mock.Anything).Return(&gateway.PayoutResult{ID: "po_1", Status: "paid"}, nil)
	f.payoutRepo.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("MarkPaidOut", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID, Force: true})

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, payout.StatusPaid, record.Status)
}

func TestProcessPayout_SuccessfulPayout(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	now := time.Now()
	entries := []*ledger.Entry{
		eligibleEntry(vendorID, 10000, now.Add(-48*time.Hour)),
		eligibleEntry(vendorID, 5000, now.Add(-24*time.Hour)),
	}
	arrival := now.Add(48 * time.Hour)

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(2), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(2), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(&gateway.TransferResult{ID: "tr_1", Status: "succeeded"}, nil)
	f.gatewayClient.On("Payout", mock.Anything, mock.Anything).Return(&gateway.PayoutResult{ID: "po_1", Status: "in_transit", ArrivalDate: arrival}, nil)
	f.payoutRepo.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("MarkPaidOut", mock.Anything, mock.Anything).Return(int64(2), nil)
	f.producer.On("Publish", mock.Anything, vendorID.String(), mock.Anything).Return(nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	require.NoError(t, err)
	require.NotNil(t, record)
	// 5% of 15000 gross is 750 in fees, leaving 14250
	assert.Equal(t, int64(14250), record.Amount)
	assert.Equal(t, int64(750), record.FeeAmount)
	assert.Equal(t, payout.StatusInTransit, record.Status)
	assert.Equal(t, "tr_1", record.ExternalTransferRef)
	assert.Equal(t, "po_1", record.ExternalPayoutRef)
	assert.Equal(t, 2, record.BookingCount)
	require.NotNil(t, record.ArrivalDate)
	assert.False(t, f.lockTable.Held(vendorID))
	f.producer.AssertCalled(t, "Publish", mock.Anything, vendorID.String(), mock.Anything)
}

func TestProcessPayout_RequestAmountCapsBatch(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	account.FeePercent = decimal.Zero
	now := time.Now()
	entries := []*ledger.Entry{
		eligibleEntry(vendorID, 3000, now.Add(-3*time.Hour)),
		eligibleEntry(vendorID, 8000, now.Add(-2*time.Hour)),
		eligibleEntry(vendorID, 1000, now.Add(-time.Hour)),
	}

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(&gateway.TransferResult{ID: "tr_1", Status: "succeeded"}, nil)
	f.gatewayClient.On("Payout", mock.Anything, mock.Anything).Return(&gateway.PayoutResult{ID: "po_1", Status: "paid"}, nil)
	f.payoutRepo.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("MarkPaidOut", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{
		VendorAccountID: vendorID,
		Amount:          5000,
	})

	require.NoError(t, err)
	// The second entry would overflow the cap, so only the first is included
	assert.Equal(t, int64(3000), record.Amount)
	assert.Equal(t, 1, record.BookingCount)
}

func TestProcessPayout_PersistConflictAborts(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, 10000, time.Now().Add(-time.Hour))}

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	// Another writer claimed the entry between selection and persist
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindConcurrency, shared.KindOf(err))
	f.gatewayClient.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestProcessPayout_TransferFailureReleasesEntries(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, 10000, time.Now().Add(-time.Hour))}
	transferErr := shared.NewPayoutError(shared.KindGatewayUnavailable, "gateway returned status 503")

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(nil, transferErr)
	f.payoutRepo.On("UpdateStatus", mock.Anything, mock.Anything, payout.StatusFailed).Return(nil)
	f.ledgerRepo.On("ReleaseFromPayout", mock.Anything, mock.Anything).Return(int64(1), nil)
	// Retryable failure, so no manual review
	f.failureRecorder.On("RecordFailure", mock.Anything, vendorID, mock.Anything, transferErr, 0, false, mock.Anything).Return(nil)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindGatewayUnavailable, shared.KindOf(err))
	f.payoutRepo.AssertCalled(t, "UpdateStatus", mock.Anything, mock.Anything, payout.StatusFailed)
	f.ledgerRepo.AssertCalled(t, "ReleaseFromPayout", mock.Anything, mock.Anything)
	f.ledgerRepo.AssertNotCalled(t, "MarkPaidOut", mock.Anything, mock.Anything)
	f.gatewayClient.AssertNotCalled(t, "Payout", mock.Anything, mock.Anything)
	assert.False(t, f.lockTable.Held(vendorID))
}

func TestProcessPayout_PayoutLegFailureRequiresReconciliation(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, 10000, time.Now().Add(-time.Hour))}
	payoutErr := shared.NewPayoutError(shared.KindGatewayTimeout, "gateway call timed out")

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(&gateway.TransferResult{ID: "tr_1", Status: "succeeded"}, nil)
	f.gatewayClient.On("Payout", mock.Anything, mock.Anything).Return(nil, payoutErr)
	f.payoutRepo.On("Finalize", mock.Anything, mock.MatchedBy(func(r *payout.Record) bool {
		return r.Status == payout.StatusReconciliationRequired
	})).Return(nil)
	// Funds moved without a payout, always a manual review case
	f.failureRecorder.On("RecordFailure", mock.Anything, vendorID, mock.Anything, payoutErr, 0, true, mock.Anything).Return(nil)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	record, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})

	assert.Nil(t, record)
	assert.Equal(t, shared.KindReconciliationRequired, shared.KindOf(err))
	// Entries stay claimed until reconciliation resolves the gap: never
	// paid out, never released back to eligible
	f.ledgerRepo.AssertNotCalled(t, "MarkPaidOut", mock.Anything, mock.Anything)
	f.ledgerRepo.AssertNotCalled(t, "ReleaseFromPayout", mock.Anything, mock.Anything)
	f.failureRecorder.AssertExpectations(t)
	assert.False(t, f.lockTable.Held(vendorID))
}

func TestProcessPayout_LockReleasedAfterSuccess(t *testing.T) {
	f := newServiceFixture(t)
	vendorID := uuid.New()
	account := activeVendor(vendorID)
	entries := []*ledger.Entry{eligibleEntry(vendorID, 10000, time.Now().Add(-time.Hour))}

	f.vendorRepo.On("GetByID", mock.Anything, vendorID).Return(account, nil)
	f.eligibility.On("Check", mock.Anything, account).Return(nil)
	f.ledgerRepo.On("MarkEligible", mock.Anything, vendorID, 0).Return(int64(0), nil)
	f.ledgerRepo.On("EligibleForPayout", mock.Anything, vendorID).Return(entries, nil)
	f.payoutRepo.On("CreateWithLineItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledgerRepo.On("ClaimForPayout", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.ledgerRepo.On("MarkPaidOut", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gatewayClient.On("Transfer", mock.Anything, mock.Anything).Return(&gateway.TransferResult{ID: "tr_1", Status: "succeeded"}, nil)
	f.gatewayClient.On("Payout", mock.Anything, mock.Anything).Return(&gateway.PayoutResult{ID: "po_1", Status: "paid"}, nil)
	f.payoutRepo.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.ProcessPayout(context.Background(), &shared.PayoutRequest{VendorAccountID: vendorID})
	require.NoError(t, err)

	// A second run must be able to acquire the lock again
	assert.True(t, f.lockTable.TryAcquire(vendorID))
}
