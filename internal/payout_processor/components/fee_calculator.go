package components

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
)

type FeeCalculatorImpl struct {
	logger *slog.Logger
}

func NewFeeCalculator(logger *slog.Logger) service.FeeCalculator {
	return &FeeCalculatorImpl{logger: logger}
}

// Calculate computes the platform fee on a gross amount in minor units.
// The fee is rounded half away from zero, so 12.5 rounds to 13. The net
// amount is derived by subtraction, which keeps fee + net == gross exact
// for every input.
func (c *FeeCalculatorImpl) Calculate(grossAmount int64, feePercent decimal.Decimal) (int64, int64) {
	if grossAmount == 0 || feePercent.IsZero() {
		return 0, grossAmount
	}

	fee := decimal.NewFromInt(grossAmount).
		Mul(feePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return fee, grossAmount - fee
}
