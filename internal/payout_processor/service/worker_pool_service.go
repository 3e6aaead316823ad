package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

// WorkerPoolPayoutService implements the PayoutService interface, bounding
// the number of payouts executing concurrently
type WorkerPoolPayoutService struct {
	baseService PayoutService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type payoutResult struct {
	record *payout.Record
	err    error
}

func NewWorkerPoolPayoutService(
	baseService PayoutService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolPayoutService, error) {
	// Submit blocks when all workers are busy, which is the backpressure:
	// a burst of due vendors drains at pool speed instead of fanning out.
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolPayoutService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessPayout submits a payout to the worker pool and waits for its result.
func (s *WorkerPoolPayoutService) ProcessPayout(ctx context.Context, request *shared.PayoutRequest) (*payout.Record, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting payout to worker pool",
		"vendor_account_id", request.VendorAccountID.String(),
		"running_workers", s.pool.Running(),
	)

	resultChan := make(chan payoutResult, 1)

	// Copy the request so the worker never shares memory with the caller
	requestCopy := *request

	err := s.pool.Submit(func() {
		record, err := s.baseService.ProcessPayout(ctx, &requestCopy)
		resultChan <- payoutResult{record: record, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit payout to worker pool",
			"vendor_account_id", request.VendorAccountID.String(),
			"error", err,
		)
		return nil, err
	}

	result := <-resultChan
	return result.record, result.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolPayoutService) Shutdown() {
	s.logger.Info("Shutting down payout worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolPayoutService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolPayoutService) Capacity() int {
	return s.pool.Cap()
}
