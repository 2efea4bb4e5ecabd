package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EDU token metadata carried on every Balance record.
const (
	TokenSymbol   = "EDU"
	TokenName     = "EDU Token"
	TokenIcon     = "/assets/tokens/edu.svg"
	TokenDecimals = 18
)

// AmountPlaces is the number of fractional digits amounts are rounded to.
const AmountPlaces = 2

// Balance is a user's EDU holding. Version is 0 only for a manufactured
// default and grows by one on every write.
type Balance struct {
	UserID    uuid.UUID       `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	USDValue  decimal.Decimal `json:"usd_value"`
	Icon      string          `json:"icon"`
	Decimals  int             `json:"decimals"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewDefaultBalance manufactures the lazily materialized starting balance.
func NewDefaultBalance(userID uuid.UUID, amount, price decimal.Decimal, now time.Time) *Balance {
	return &Balance{
		UserID:    userID,
		Symbol:    TokenSymbol,
		Name:      TokenName,
		Balance:   amount.Round(AmountPlaces),
		USDValue:  amount.Mul(price).Round(AmountPlaces),
		Icon:      TokenIcon,
		Decimals:  TokenDecimals,
		Version:   0,
		UpdatedAt: now,
	}
}

// ZeroBalance is returned when no store could be read at all.
func ZeroBalance(userID uuid.UUID) *Balance {
	return &Balance{
		UserID:   userID,
		Symbol:   TokenSymbol,
		Name:     TokenName,
		Balance:  decimal.Zero,
		USDValue: decimal.Zero,
		Icon:     TokenIcon,
		Decimals: TokenDecimals,
	}
}

// IsUntouchedDefault reports whether b is still the manufactured default.
func (b *Balance) IsUntouchedDefault(defaultAmount decimal.Decimal) bool {
	return b.Version == 0 && b.Balance.Equal(defaultAmount)
}

// WithAmount returns the next version of b holding amount, with the USD
// value recomputed at price.
func (b *Balance) WithAmount(amount, price decimal.Decimal, now time.Time) *Balance {
	next := *b
	next.Balance = amount.Round(AmountPlaces)
	next.USDValue = next.Balance.Mul(price).Round(AmountPlaces)
	next.Version = b.Version + 1
	next.UpdatedAt = now
	return &next
}

// MarshalJSON renders amounts with two fractional digits.
func (b Balance) MarshalJSON() ([]byte, error) {
	type alias Balance
	return json.Marshal(struct {
		alias
		Balance  string `json:"balance"`
		USDValue string `json:"usd_value"`
	}{
		alias:    alias(b),
		Balance:  b.Balance.StringFixed(AmountPlaces),
		USDValue: b.USDValue.StringFixed(AmountPlaces),
	})
}

// Movement is a single debit or credit request against a user's balance.
// Amount is always a positive magnitude; the direction is chosen by the
// ledger operation.
type Movement struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        TransactionType
	Description string
	From        string
	To          string
	NFTID       string
}

// PriceQuote is the EDU market snapshot.
type PriceQuote struct {
	Symbol      string          `json:"symbol"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
	Change24h   decimal.Decimal `json:"change_24h"` // percent
	MarketCap   decimal.Decimal `json:"market_cap"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
