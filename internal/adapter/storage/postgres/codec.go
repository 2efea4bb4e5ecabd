package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as TEXT so the exact two-digit representation
// survives a round trip.
func encodeAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func decodeAmount(column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", column, raw, err)
	}
	return d, nil
}
