package components

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

type MockFailureRepo struct {
	mock.Mock
}

func (m *MockFailureRepo) Create(ctx context.Context, record *payout.FailureRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockFailureRepo) ListByVendor(ctx context.Context, vendorAccountID uuid.UUID, limit, offset int) ([]*payout.FailureRecord, error) {
	args := m.Called(ctx, vendorAccountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payout.FailureRecord), args.Error(1)
}

func (m *MockFailureRepo) ListRequiringReview(ctx context.Context, limit, offset int) ([]*payout.FailureRecord, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payout.FailureRecord), args.Error(1)
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

func TestFailureRecorder_ArchivesTaggedError(t *testing.T) {
	repo := new(MockFailureRepo)
	producer := new(MockPublisher)
	recorder := NewFailureRecorder(repo, producer, testLogger())

	vendorID := uuid.New()
	recordID := uuid.New()
	cause := shared.NewPayoutError(shared.KindGatewayTimeout, "gateway call timed out").
		WithDetail("status_code", 504)

	var archived *payout.FailureRecord
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		archived = args.Get(1).(*payout.FailureRecord)
	}).Return(nil)

	err := recorder.RecordFailure(context.Background(), vendorID, &recordID, cause, 2, false, "corr-1")

	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, vendorID, archived.VendorAccountID)
	assert.Equal(t, &recordID, archived.PayoutRecordID)
	assert.Equal(t, string(shared.KindGatewayTimeout), archived.ErrorKind)
	assert.Equal(t, 2, archived.RetryCount)
	assert.False(t, archived.RequiresManualReview)
	assert.Equal(t, 504, archived.ErrorDetails["status_code"])
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestFailureRecorder_ManualReviewPublishesEvent(t *testing.T) {
	repo := new(MockFailureRepo)
	producer := new(MockPublisher)
	recorder := NewFailureRecorder(repo, producer, testLogger())

	vendorID := uuid.New()
	cause := errors.New("ledger entries changed during payout persist")

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	producer.On("Publish", mock.Anything, vendorID.String(), mock.MatchedBy(func(v interface{}) bool {
		event, ok := v.(*shared.PayoutEvent)
		return ok && event.Type == shared.PayoutEventManualReview
	})).Return(nil)

	err := recorder.RecordFailure(context.Background(), vendorID, nil, cause, 3, true, "corr-2")

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestFailureRecorder_PublishFailureDoesNotFailRecording(t *testing.T) {
	repo := new(MockFailureRepo)
	producer := new(MockPublisher)
	recorder := NewFailureRecorder(repo, producer, testLogger())

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	err := recorder.RecordFailure(context.Background(), uuid.New(), nil, errors.New("boom"), 1, true, "")

	assert.NoError(t, err, "the archive entry is the durable signal")
}

func TestFailureRecorder_ArchiveErrorPropagates(t *testing.T) {
	repo := new(MockFailureRepo)
	producer := new(MockPublisher)
	recorder := NewFailureRecorder(repo, producer, testLogger())

	archiveErr := errors.New("mongo unavailable")
	repo.On("Create", mock.Anything, mock.Anything).Return(archiveErr)

	err := recorder.RecordFailure(context.Background(), uuid.New(), nil, errors.New("boom"), 1, true, "")

	assert.ErrorIs(t, err, archiveErr)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
