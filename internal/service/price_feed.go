package service

import (
	"context"
	"time"

	"edu-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

var (
	staticChange24h   = decimal.RequireFromString("2.5")
	staticMarketCap   = decimal.NewFromInt(5_000_000)
	staticTotalSupply = decimal.NewFromInt(100_000_000)
)

// StaticPriceFeed implements ports.PriceFeed with a fixed quote.
type StaticPriceFeed struct {
	price decimal.Decimal
	now   func() time.Time
}

// NewStaticPriceFeed quotes EDU at price.
func NewStaticPriceFeed(price decimal.Decimal) *StaticPriceFeed {
	return &StaticPriceFeed{price: price, now: time.Now}
}

func (f *StaticPriceFeed) Quote(_ context.Context) (*domain.PriceQuote, error) {
	return &domain.PriceQuote{
		Symbol:      domain.TokenSymbol,
		PriceUSD:    f.price,
		Change24h:   staticChange24h,
		MarketCap:   staticMarketCap,
		TotalSupply: staticTotalSupply,
		UpdatedAt:   f.now().UTC(),
	}, nil
}
