package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// CurrencyConverter is the collaborator boundary for exchange rate lookup.
// The core only needs the rate from a submission currency into the company's
// base currency.
type CurrencyConverter interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type staticConverter struct{}

// NewStaticConverter returns a converter that always quotes 1:1. Live rate
// lookup is an external integration; the static rate keeps converted amounts
// equal to original amounts, with exchange_rate recorded as 1.
func NewStaticConverter() CurrencyConverter {
	return staticConverter{}
}

func (staticConverter) Rate(_ context.Context, _, _ string) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}
