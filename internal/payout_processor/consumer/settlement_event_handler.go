package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

// SettlementEventHandler consumes settled-payment events and books them as
// ledger entries owed to the vendor. Entries start in the pending payout
// state; the hold period promotion to eligible happens at payout time.
type SettlementEventHandler struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewSettlementEventHandler creates a new handler
func NewSettlementEventHandler(logger *slog.Logger, ledgerRepo ledger.Repository) *SettlementEventHandler {
	return &SettlementEventHandler{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// HandleMessage processes one settlement message. Malformed and duplicate
// messages are acknowledged and dropped: redelivery cannot fix either, and
// settlement topics are replayed during recovery, so duplicates are routine.
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.SettlementEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("Failed to unmarshal settlement event, dropping message",
			"error", err,
			"message_key", string(key),
		)
		return nil
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	if event.EntryID == uuid.Nil || event.VendorAccountID == uuid.Nil || event.GrossAmount <= 0 {
		logger.Error("Invalid settlement event, dropping message",
			"entry_id", event.EntryID.String(),
			"vendor_account_id", event.VendorAccountID.String(),
			"gross_amount", event.GrossAmount,
		)
		return nil
	}

	createdAt := event.SettledAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	entry := &ledger.Entry{
		ID:              event.EntryID,
		VendorAccountID: event.VendorAccountID,
		GrossAmount:     event.GrossAmount,
		// Platform fees are assessed at payout time, so the full gross
		// amount is carried as owed until then.
		NetAmount:    event.GrossAmount,
		FeeAmount:    0,
		Currency:     event.Currency,
		Status:       ledger.EntryStatusCompleted,
		PayoutStatus: ledger.PayoutStatusPending,
		CreatedAt:    createdAt,
	}

	if err := h.ledgerRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntry{}) {
			logger.Info("Settlement event already booked (idempotency)", "entry_id", event.EntryID.String())
			return nil
		}
		logger.Error("Failed to book settlement event",
			"entry_id", event.EntryID.String(),
			"vendor_account_id", event.VendorAccountID.String(),
			"error", err,
		)
		return fmt.Errorf("booking settlement event %s failed: %w", event.EntryID.String(), err)
	}

	logger.Info("Booked settlement event as ledger entry",
		"entry_id", event.EntryID.String(),
		"vendor_account_id", event.VendorAccountID.String(),
		"gross_amount", event.GrossAmount,
	)
	return nil
}
