package components

import (
	"log/slog"

	"github.com/vendor-payouts/payout-service/internal/config"
	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/locks"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
	"github.com/vendor-payouts/payout-service/internal/platform/gateway"
	"github.com/vendor-payouts/payout-service/internal/platform/messaging/producers"
	"github.com/vendor-payouts/payout-service/internal/platform/persistence"
)

// CreatePayoutService creates a new PayoutService with all its dependencies.
func CreatePayoutService(
	pgDB *persistence.PostgresDB,
	vendorRepo vendor.Repository,
	ledgerRepo ledger.Repository,
	payoutRepo payout.Repository,
	failureRepo payout.FailureRepository,
	gatewayClient gateway.Client,
	producer producers.MessagePublisher,
	lockTable *locks.VendorLockTable,
	logger *slog.Logger,
	cfg *config.Config,
) service.PayoutService {
	feeCalculator := NewFeeCalculator(logger)
	batchSelector := NewBatchSelector(logger)
	eligibility := NewEligibilityChecker(vendorRepo, logger)
	failureRecorder := NewFailureRecorder(failureRepo, producer, logger)

	baseService := service.NewPayoutService(
		pgDB,
		vendorRepo,
		ledgerRepo,
		payoutRepo,
		feeCalculator,
		batchSelector,
		eligibility,
		failureRecorder,
		gatewayClient,
		producer,
		lockTable,
		&cfg.Payout,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolPayoutService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.Payout.MaxConcurrent,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool payout service", "pool_size", cfg.Payout.MaxConcurrent)
	return workerPoolService
}
