// Package dispatcher drives scheduled payouts. On every tick it collects the
// due jobs from the registry, fans them out through the payout service, and
// reschedules each job from its outcome: success and no-op runs return to the
// regular cadence, transient failures retry with exponential backoff, and
// exhausted jobs are marked failed and held out of rotation for manual review.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/config"
	"github.com/vendor-payouts/payout-service/internal/domain/schedule"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
)

type Dispatcher struct {
	registry        *schedule.Registry
	payoutService   service.PayoutService
	failureRecorder service.FailureRecorder
	logger          *slog.Logger
	tickInterval    time.Duration
	maxRetries      int
	retryBaseDelay  time.Duration
	batchSize       int
	batchChunkDelay time.Duration
}

func NewDispatcher(
	cfg *config.PayoutConfig,
	registry *schedule.Registry,
	payoutService service.PayoutService,
	failureRecorder service.FailureRecorder,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:        registry,
		payoutService:   payoutService,
		failureRecorder: failureRecorder,
		logger:          logger,
		tickInterval:    cfg.TickInterval,
		maxRetries:      cfg.MaxRetries,
		retryBaseDelay:  cfg.RetryBaseDelay,
		batchSize:       cfg.BatchSize,
		batchChunkDelay: cfg.BatchChunkDelay,
	}
}

// Start runs the dispatch loop until the context is canceled. The first tick
// fires immediately so jobs that came due while the service was down are not
// delayed by a full interval.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting payout dispatcher",
		"tick_interval", d.tickInterval.String(),
		"max_retries", d.maxRetries,
		"batch_size", d.batchSize,
	)

	d.tick(ctx)

	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Payout dispatcher stopping due to context cancellation.")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick collects the due jobs and dispatches them in chunks. A short pause
// between chunks spreads gateway load when many vendors come due in the same
// tick, such as the daily 02:00 batch.
func (d *Dispatcher) tick(ctx context.Context) {
	now := time.Now()
	due := d.registry.Due(now)
	if len(due) == 0 {
		d.logger.Debug("Dispatcher tick: no jobs due")
		return
	}

	d.logger.Info("Dispatcher tick: processing due payout jobs", "count", len(due))

	for start := 0; start < len(due); start += d.batchSize {
		end := start + d.batchSize
		if end > len(due) {
			end = len(due)
		}

		var wg sync.WaitGroup
		for _, job := range due[start:end] {
			wg.Add(1)
			go func(job *schedule.Job) {
				defer wg.Done()
				d.processJob(ctx, job)
			}(job)
		}
		wg.Wait()

		if end < len(due) && d.batchChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.batchChunkDelay):
			}
		}
	}
}

// BatchResult aggregates the outcome of an explicit batch run
type BatchResult struct {
	Succeeded int
	Failed    int
}

// ProcessBatch runs an explicit list of payout requests outside the regular
// schedule, for mass runs such as a backfill after an outage. Requests are
// processed in chunks of the configured batch size, each chunk fanned out
// concurrently, with a pause between chunks to respect gateway rate limits.
// Individual failures do not stop the batch.
func (d *Dispatcher) ProcessBatch(ctx context.Context, requests []*shared.PayoutRequest) BatchResult {
	var result BatchResult
	if len(requests) == 0 {
		return result
	}

	d.logger.Info("Processing explicit payout batch",
		"count", len(requests),
		"chunk_size", d.batchSize,
	)

	var mu sync.Mutex
	for start := 0; start < len(requests); start += d.batchSize {
		end := start + d.batchSize
		if end > len(requests) {
			end = len(requests)
		}

		var wg sync.WaitGroup
		for _, request := range requests[start:end] {
			wg.Add(1)
			go func(request *shared.PayoutRequest) {
				defer wg.Done()
				if request.CorrelationID == "" {
					request.CorrelationID = uuid.New().String()
				}
				_, err := d.payoutService.ProcessPayout(ctx, request)
				mu.Lock()
				if err != nil {
					result.Failed++
				} else {
					result.Succeeded++
				}
				mu.Unlock()
				if err != nil {
					d.logger.Warn("Batch payout attempt failed",
						"vendor_account_id", request.VendorAccountID.String(),
						"correlation_id", request.CorrelationID,
						"error_kind", shared.KindOf(err),
						"error", err,
					)
				}
			}(request)
		}
		wg.Wait()

		if end < len(requests) && d.batchChunkDelay > 0 {
			select {
			case <-ctx.Done():
				d.logger.Warn("Payout batch interrupted",
					"processed", result.Succeeded+result.Failed,
					"remaining", len(requests)-end,
				)
				return result
			case <-time.After(d.batchChunkDelay):
			}
		}
	}

	d.logger.Info("Payout batch completed",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result
}

// processJob runs one payout attempt for a due job and reschedules it from
// the outcome.
func (d *Dispatcher) processJob(ctx context.Context, job *schedule.Job) {
	executedAt := time.Now()
	request := &shared.PayoutRequest{
		VendorAccountID: job.VendorAccountID,
		CorrelationID:   uuid.New().String(),
		RequestedAt:     executedAt,
	}
	logger := d.logger.With("correlation_id", request.CorrelationID)

	record, err := d.payoutService.ProcessPayout(ctx, request)
	switch {
	case err == nil:
		logger.Info("Scheduled payout succeeded",
			"vendor_account_id", job.VendorAccountID.String(),
			"payout_record_id", record.ID.String(),
			"amount", record.Amount,
		)
		d.registry.Update(job.VendorAccountID, func(j *schedule.Job) {
			j.LastExecuted = &executedAt
			j.RetryCount = 0
			j.Status = schedule.JobScheduled
			j.NextExecution = schedule.ComputeNextExecution(j.Interval, &executedAt, executedAt)
		})

	case errors.Is(err, service.ErrBelowMinimum):
		// Nothing to pay out. Not a failure: the retry count is untouched
		// and the job simply waits for its next regular slot.
		logger.Info("Scheduled payout skipped, balance below minimum",
			"vendor_account_id", job.VendorAccountID.String(),
		)
		d.registry.Update(job.VendorAccountID, func(j *schedule.Job) {
			j.Status = schedule.JobScheduled
			j.NextExecution = schedule.ComputeNextExecution(j.Interval, j.LastExecuted, executedAt)
		})

	case shared.KindOf(err) == shared.KindConcurrency:
		// A manual payout is in flight for the vendor; yield to it and try
		// again at the regular cadence.
		logger.Info("Scheduled payout yielded to in-flight payout",
			"vendor_account_id", job.VendorAccountID.String(),
		)
		d.registry.Update(job.VendorAccountID, func(j *schedule.Job) {
			j.Status = schedule.JobScheduled
			j.NextExecution = schedule.ComputeNextExecution(j.Interval, j.LastExecuted, executedAt)
		})

	case shared.KindOf(err) == shared.KindNotFound:
		// The vendor account is gone; the job is stale state left over from
		// before the deletion. Unschedule it instead of retrying forever.
		logger.Warn("Scheduled payout vendor no longer exists, unscheduling job",
			"vendor_account_id", job.VendorAccountID.String(),
		)
		d.registry.Remove(job.VendorAccountID)

	case shared.IsRetryable(err):
		d.scheduleRetry(ctx, job, request, err, executedAt, logger)

	default:
		// Fatal failure. The payout service already archived it for review;
		// retrying the same input cannot succeed, so return to the regular
		// cadence and wait for an operator or configuration change.
		logger.Error("Scheduled payout failed fatally",
			"vendor_account_id", job.VendorAccountID.String(),
			"error_kind", shared.KindOf(err),
			"error", err,
		)
		d.registry.Update(job.VendorAccountID, func(j *schedule.Job) {
			j.RetryCount = 0
			j.Status = schedule.JobScheduled
			j.NextExecution = schedule.ComputeNextExecution(j.Interval, j.LastExecuted, executedAt)
		})
	}
}

// scheduleRetry reschedules a transiently failed job with exponential
// backoff, or marks it failed once retries are exhausted. A failed job stays
// in the registry so schedule queries still see it, but it gets no next
// execution: an operator re-enables it by updating the vendor's schedule.
func (d *Dispatcher) scheduleRetry(ctx context.Context, job *schedule.Job, request *shared.PayoutRequest, cause error, executedAt time.Time, logger *slog.Logger) {
	retryCount := job.RetryCount + 1

	if retryCount >= d.maxRetries {
		logger.Warn("Payout retries exhausted, marking job failed for manual review",
			"vendor_account_id", job.VendorAccountID.String(),
			"retry_count", retryCount,
			"error", cause,
		)
		if recordErr := d.failureRecorder.RecordFailure(ctx, job.VendorAccountID, nil, cause, retryCount, true, request.CorrelationID); recordErr != nil {
			logger.Error("Failed to record exhausted payout job", "vendor_account_id", job.VendorAccountID.String(), "error", recordErr)
		}
		d.registry.Update(job.VendorAccountID, func(j *schedule.Job) {
			j.RetryCount = retryCount
			j.Status = schedule.JobFailed
		})
		return
	}

	delay := schedule.RetryBackoff(d.retryBaseDelay, retryCount)
	logger.Warn("Scheduled payout failed transiently, will retry",
		"vendor_account_id", job.VendorAccountID.String(),
		"retry_count", retryCount,
		"retry_in", delay.String(),
		"error", cause,
	)
	d.registry.Update(job.VendorAccountID, func(j *schedule.Job) {
		j.RetryCount = retryCount
		j.Status = schedule.JobScheduled
		j.NextExecution = executedAt.Add(delay)
	})
}
