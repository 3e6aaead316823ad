package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vendor-payouts/payout-service/internal/config"
	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/locks"
	"github.com/vendor-payouts/payout-service/internal/platform/gateway"
	"github.com/vendor-payouts/payout-service/internal/platform/messaging/producers"
)

type PayoutServiceImpl struct {
	txRunner        TxRunner
	vendorRepo      vendor.Repository
	ledgerRepo      ledger.Repository
	payoutRepo      payout.Repository
	feeCalculator   FeeCalculator
	batchSelector   BatchSelector
	eligibility     EligibilityChecker
	failureRecorder FailureRecorder
	gatewayClient   gateway.Client
	producer        producers.MessagePublisher
	lockTable       *locks.VendorLockTable
	cfg             *config.PayoutConfig
	logger          *slog.Logger
}

func NewPayoutService(
	txRunner TxRunner,
	vendorRepo vendor.Repository,
	ledgerRepo ledger.Repository,
	payoutRepo payout.Repository,
	feeCalculator FeeCalculator,
	batchSelector BatchSelector,
	eligibility EligibilityChecker,
	failureRecorder FailureRecorder,
	gatewayClient gateway.Client,
	producer producers.MessagePublisher,
	lockTable *locks.VendorLockTable,
	cfg *config.PayoutConfig,
	logger *slog.Logger,
) PayoutService {
	return &PayoutServiceImpl{
		txRunner:        txRunner,
		vendorRepo:      vendorRepo,
		ledgerRepo:      ledgerRepo,
		payoutRepo:      payoutRepo,
		feeCalculator:   feeCalculator,
		batchSelector:   batchSelector,
		eligibility:     eligibility,
		failureRecorder: failureRecorder,
		gatewayClient:   gatewayClient,
		producer:        producer,
		lockTable:       lockTable,
		cfg:             cfg,
		logger:          logger,
	}
}

// ProcessPayout runs one payout attempt for a vendor end to end:
// validate, lock, check eligibility, select a batch of eligible ledger
// entries, persist the record and line items atomically, then execute the
// two gateway legs (transfer, then payout).
//
// No payout record exists until selection succeeds, so validation and
// eligibility failures leave no trace in payout history. After the record is
// persisted, every failure path finalizes it to a terminal status before
// returning.
func (s *PayoutServiceImpl) ProcessPayout(ctx context.Context, request *shared.PayoutRequest) (*payout.Record, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	// 1. Validate the request
	if err := s.validate(request); err != nil {
		logger.Error("Payout request validation failed", "error", err)
		return nil, err
	}

	// 2. Acquire the per-vendor lock without blocking
	if !s.lockTable.TryAcquire(request.VendorAccountID) {
		logger.Info("Payout already in flight for vendor", "vendor_account_id", request.VendorAccountID.String())
		return nil, shared.NewPayoutError(shared.KindConcurrency, "a payout is already in flight for this vendor").
			WithDetail("vendor_account_id", request.VendorAccountID.String())
	}
	defer s.lockTable.Release(request.VendorAccountID)

	// 3. Load the vendor and check eligibility
	account, err := s.vendorRepo.GetByID(ctx, request.VendorAccountID)
	if err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			return nil, shared.WrapPayoutError(shared.KindNotFound, "vendor account not found", err).
				WithDetail("vendor_account_id", request.VendorAccountID.String())
		}
		return nil, err
	}
	if err := s.eligibility.Check(ctx, account); err != nil {
		return nil, err
	}

	// 4. Promote entries past the vendor's hold period
	if _, err := s.ledgerRepo.MarkEligible(ctx, account.ID, account.HoldPeriodDays); err != nil {
		return nil, err
	}

	// 5. Select the batch and compute fees
	entries, err := s.ledgerRepo.EligibleForPayout(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	maxAmount := s.cfg.MaximumAmount
	if request.Amount > 0 && request.Amount < maxAmount {
		maxAmount = request.Amount
	}
	selected := s.batchSelector.Select(entries, maxAmount)

	record, items := s.buildRecord(account, selected, request.RequestedAt)

	minimum := account.MinimumPayoutAmount
	if s.cfg.MinimumAmount > minimum {
		minimum = s.cfg.MinimumAmount
	}
	if len(selected) == 0 || (!request.Force && record.Amount < minimum) {
		logger.Info("Eligible balance below minimum, skipping payout",
			"vendor_account_id", account.ID.String(),
			"eligible_amount", record.Amount,
			"minimum", minimum,
		)
		return nil, shared.WrapPayoutError(shared.KindEligibility, "eligible balance below minimum payout amount", ErrBelowMinimum).
			WithDetail("vendor_account_id", account.ID.String()).
			WithDetail("eligible_amount", record.Amount).
			WithDetail("minimum", minimum)
	}

	logger.Info("Processing payout",
		"vendor_account_id", account.ID.String(),
		"payout_record_id", record.ID.String(),
		"amount", record.Amount,
		"fee_amount", record.FeeAmount,
		"booking_count", record.BookingCount,
	)

	// 6. Persist the record and line items, and claim the entries, atomically.
	// Entries move to paid_out only after the payout settles; until then the
	// claim keeps other runs off them.
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.payoutRepo.WithTx(tx).CreateWithLineItems(ctx, record, items); err != nil {
			return err
		}

		entryIDs := make([]uuid.UUID, len(selected))
		for i, entry := range selected {
			entryIDs[i] = entry.ID
		}
		claimed, err := s.ledgerRepo.WithTx(tx).ClaimForPayout(ctx, entryIDs, record.ID)
		if err != nil {
			return err
		}
		if claimed != int64(len(selected)) {
			// Another writer touched the entries between selection and
			// persist; abort rather than pay out a partial batch.
			return shared.NewPayoutError(shared.KindConcurrency, "ledger entries changed during payout persist").
				WithDetail("expected", len(selected)).
				WithDetail("claimed", claimed)
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to persist payout record", "payout_record_id", record.ID.String(), "error", err)
		return nil, err
	}

	// 7. Execute the gateway legs
	return s.executeTransfer(ctx, logger, account, record, request)
}

// validate rejects bad requests before the lock is taken, so a rejected call
// leaves no trace at all. A zero amount means "pay out everything eligible"
// and is bounded by the global ceiling during selection instead.
func (s *PayoutServiceImpl) validate(request *shared.PayoutRequest) error {
	if request.VendorAccountID == uuid.Nil {
		return shared.NewPayoutError(shared.KindValidation, "vendor account id is required")
	}
	if request.Amount < 0 {
		return shared.NewPayoutError(shared.KindValidation, fmt.Sprintf("amount cannot be negative: %d", request.Amount)).
			WithDetail("amount", request.Amount)
	}
	if request.Amount > 0 {
		if request.Amount > s.cfg.MaximumAmount {
			return shared.NewPayoutError(shared.KindValidation, fmt.Sprintf("amount %d exceeds the maximum payout amount %d", request.Amount, s.cfg.MaximumAmount)).
				WithDetail("amount", request.Amount).
				WithDetail("maximum", s.cfg.MaximumAmount)
		}
		if !request.Force && request.Amount < s.cfg.MinimumAmount {
			return shared.NewPayoutError(shared.KindValidation, fmt.Sprintf("amount %d is below the minimum payout amount %d", request.Amount, s.cfg.MinimumAmount)).
				WithDetail("amount", request.Amount).
				WithDetail("minimum", s.cfg.MinimumAmount)
		}
	}
	return nil
}

// buildRecord snapshots the selected entries into a payout record and its
// line items. Fees are assessed here, at payout time, against the vendor's
// current fee percent.
func (s *PayoutServiceImpl) buildRecord(account *vendor.Account, selected []*ledger.Entry, requestedAt time.Time) (*payout.Record, []*payout.LineItem) {
	now := time.Now()
	record := &payout.Record{
		ID:              uuid.New(),
		VendorAccountID: account.ID,
		Status:          payout.StatusProcessing,
		IdempotencyKey:  uuid.New().String(),
		BookingCount:    len(selected),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if requestedAt.IsZero() {
		requestedAt = now
	}

	items := make([]*payout.LineItem, 0, len(selected))
	for _, entry := range selected {
		fee, net := s.feeCalculator.Calculate(entry.NetAmount, account.FeePercent)
		items = append(items, &payout.LineItem{
			ID:             uuid.New(),
			PayoutRecordID: record.ID,
			LedgerEntryID:  entry.ID,
			GrossAmount:    entry.NetAmount,
			FeeAmount:      fee,
			NetAmount:      net,
			CreatedAt:      now,
		})
		record.Amount += net
		record.FeeAmount += fee
		if record.Currency == "" {
			record.Currency = entry.Currency
		}
	}

	if len(selected) > 0 {
		record.PeriodStart = selected[0].CreatedAt
		record.PeriodEnd = selected[len(selected)-1].CreatedAt
	} else {
		record.PeriodStart = requestedAt
		record.PeriodEnd = requestedAt
	}

	return record, items
}

// executeTransfer runs the first gateway leg. A failed transfer means no
// funds moved: the record is finalized as failed and the ledger entries are
// released so a later run can retry them.
func (s *PayoutServiceImpl) executeTransfer(ctx context.Context, logger *slog.Logger, account *vendor.Account, record *payout.Record, request *shared.PayoutRequest) (*payout.Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProcessingTimeout)
	transferResult, err := s.gatewayClient.Transfer(callCtx, &gateway.TransferRequest{
		DestinationAccount: account.ExternalAccountRef,
		Amount:             record.Amount,
		Currency:           record.Currency,
		Metadata: map[string]string{
			"payout_record_id": record.ID.String(),
			"correlation_id":   request.CorrelationID,
		},
		IdempotencyKey: record.IdempotencyKey + "-transfer",
	})
	cancel()
	if err != nil {
		logger.Error("Gateway transfer failed",
			"payout_record_id", record.ID.String(),
			"error_kind", shared.KindOf(err),
			"error", err,
		)

		rollbackErr := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if updateErr := s.payoutRepo.WithTx(tx).UpdateStatus(ctx, record.ID, payout.StatusFailed); updateErr != nil {
				return updateErr
			}
			_, releaseErr := s.ledgerRepo.WithTx(tx).ReleaseFromPayout(ctx, record.ID)
			return releaseErr
		})
		if rollbackErr != nil {
			logger.Error("Failed to release entries after transfer failure", "payout_record_id", record.ID.String(), "error", rollbackErr)
		}

		recordID := record.ID
		if recordErr := s.failureRecorder.RecordFailure(ctx, account.ID, &recordID, err, 0, !shared.IsRetryable(err), request.CorrelationID); recordErr != nil {
			logger.Error("Failed to record transfer failure", "payout_record_id", record.ID.String(), "error", recordErr)
		}
		s.publishEvent(ctx, shared.PayoutEventFailed, record, err, request.CorrelationID)

		return nil, err
	}

	record.ExternalTransferRef = transferResult.ID
	return s.executePayout(ctx, logger, account, record, request)
}

// executePayout runs the second gateway leg. A failure here is the partial
// state: funds already moved to the vendor's account but the outbound payout
// was not issued. The record is finalized as reconciliation_required and the
// entries stay claimed, neither paid out nor released; resolving the gap is a
// manual operation.
func (s *PayoutServiceImpl) executePayout(ctx context.Context, logger *slog.Logger, account *vendor.Account, record *payout.Record, request *shared.PayoutRequest) (*payout.Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProcessingTimeout)
	payoutResult, err := s.gatewayClient.Payout(callCtx, &gateway.PayoutRequest{
		Amount:   record.Amount,
		Currency: record.Currency,
		Metadata: map[string]string{
			"payout_record_id": record.ID.String(),
			"correlation_id":   request.CorrelationID,
		},
		OnBehalfOf:     account.ExternalAccountRef,
		IdempotencyKey: record.IdempotencyKey + "-payout",
	})
	cancel()
	if err != nil {
		logger.Error("Gateway payout failed after successful transfer",
			"payout_record_id", record.ID.String(),
			"external_transfer_ref", record.ExternalTransferRef,
			"error_kind", shared.KindOf(err),
			"error", err,
		)

		record.Status = payout.StatusReconciliationRequired
		if finalizeErr := s.payoutRepo.Finalize(ctx, record); finalizeErr != nil {
			logger.Error("Failed to finalize reconciliation-required record", "payout_record_id", record.ID.String(), "error", finalizeErr)
		}

		recordID := record.ID
		if recordErr := s.failureRecorder.RecordFailure(ctx, account.ID, &recordID, err, 0, true, request.CorrelationID); recordErr != nil {
			logger.Error("Failed to record payout leg failure", "payout_record_id", record.ID.String(), "error", recordErr)
		}
		s.publishEvent(ctx, shared.PayoutEventReconciliationNeeded, record, err, request.CorrelationID)

		return nil, shared.WrapPayoutError(shared.KindReconciliationRequired, "transfer succeeded but payout leg failed", err).
			WithDetail("payout_record_id", record.ID.String()).
			WithDetail("external_transfer_ref", record.ExternalTransferRef)
	}

	record.ExternalPayoutRef = payoutResult.ID
	if !payoutResult.ArrivalDate.IsZero() {
		arrival := payoutResult.ArrivalDate
		record.ArrivalDate = &arrival
	}
	if payoutResult.Status == "paid" {
		record.Status = payout.StatusPaid
	} else {
		record.Status = payout.StatusInTransit
	}

	// Finalize the record and complete the claimed entries' one-time
	// transition to paid_out together.
	finalizeErr := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.payoutRepo.WithTx(tx).Finalize(ctx, record); err != nil {
			return err
		}
		marked, err := s.ledgerRepo.WithTx(tx).MarkPaidOut(ctx, record.ID)
		if err != nil {
			return err
		}
		if marked != int64(record.BookingCount) {
			logger.Warn("Paid-out entry count does not match the payout record",
				"payout_record_id", record.ID.String(),
				"expected", record.BookingCount,
				"marked", marked,
			)
		}
		return nil
	})
	if finalizeErr != nil {
		logger.Error("Failed to finalize settled payout record", "payout_record_id", record.ID.String(), "error", finalizeErr)
		return nil, fmt.Errorf("payout executed but record finalization failed for %s: %w", record.ID.String(), finalizeErr)
	}

	logger.Info("Payout settled",
		"payout_record_id", record.ID.String(),
		"vendor_account_id", account.ID.String(),
		"amount", record.Amount,
		"status", record.Status,
	)
	s.publishEvent(ctx, shared.PayoutEventSettled, record, nil, request.CorrelationID)

	return record, nil
}

// publishEvent emits a lifecycle event. Publish failures are logged only;
// events are advisory and must not change the payout outcome.
func (s *PayoutServiceImpl) publishEvent(ctx context.Context, eventType shared.PayoutEventType, record *payout.Record, cause error, correlationID string) {
	event := &shared.PayoutEvent{
		Type:            eventType,
		VendorAccountID: record.VendorAccountID,
		PayoutRecordID:  record.ID,
		Amount:          record.Amount,
		Currency:        record.Currency,
		CorrelationID:   correlationID,
		OccurredAt:      time.Now(),
	}
	if cause != nil {
		event.ErrorKind = string(shared.KindOf(cause))
		event.ErrorMessage = cause.Error()
	}

	if err := s.producer.Publish(ctx, record.VendorAccountID.String(), event); err != nil {
		s.logger.Error("Failed to publish payout event",
			"type", eventType,
			"payout_record_id", record.ID.String(),
			"error", err,
		)
	}
}
