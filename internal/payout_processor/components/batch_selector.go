package components

import (
	"log/slog"

	"github.com/vendor-payouts/payout-service/internal/domain/ledger"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
)

type BatchSelectorImpl struct {
	logger *slog.Logger
}

func NewBatchSelector(logger *slog.Logger) service.BatchSelector {
	return &BatchSelectorImpl{logger: logger}
}

// Select accumulates entries in the given order until the next entry would
// push the net total past maxAmount, then stops. Selection never skips past
// an overflowing entry to a smaller later one: entries are settled funds owed
// oldest-first, and paying a newer entry before an older one would reorder
// the queue. maxAmount <= 0 means no cap.
func (s *BatchSelectorImpl) Select(entries []*ledger.Entry, maxAmount int64) []*ledger.Entry {
	if maxAmount <= 0 {
		return entries
	}

	var total int64
	for i, entry := range entries {
		if total+entry.NetAmount > maxAmount {
			s.logger.Debug("Batch selection stopped at cap",
				"selected", i,
				"total", total,
				"max_amount", maxAmount,
			)
			return entries[:i]
		}
		total += entry.NetAmount
	}
	return entries
}
