package handler

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// amountScale is the number of stroops in one unit of an asset.
const amountScale = 7

var (
	ErrInvalidAmount  = errors.New("amount must be a decimal number")
	ErrAmountPrecise  = fmt.Errorf("amount has more than %d decimal places", amountScale)
	ErrAmountTooLarge = errors.New("amount does not fit in 64 bits of stroops")

	maxStroops = decimal.NewFromInt(math.MaxInt64)
	minStroops = decimal.NewFromInt(math.MinInt64)
)

// ParseAmount converts a decimal string such as "12.5" into stroops. The sign is kept;
// rejecting non-positive amounts is the ledger's job.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	stroops := d.Shift(amountScale)
	if !stroops.Equal(stroops.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q", ErrAmountPrecise, s)
	}
	if stroops.GreaterThan(maxStroops) || stroops.LessThan(minStroops) {
		return 0, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	return stroops.IntPart(), nil
}

// FormatAmount renders stroops with the full seven decimal places.
func FormatAmount(stroops int64) string {
	return decimal.New(stroops, -amountScale).StringFixed(amountScale)
}
