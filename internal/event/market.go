package event

import "github.com/shopspring/decimal"

// MarketInit bootstraps a market before any event references it.
// Margin fractions are immutable afterwards; only MarkPriceUpdate and
// FundingUpdate mutate a market once created.
type MarketInit struct {
	Market           string
	IMFraction       decimal.Decimal // in [0,1]
	MMFraction       decimal.Decimal // in [0, IMFraction]
	InitialMarkPrice decimal.Decimal // >= 0; zero until the first MarkPriceUpdate is fine
}

func (m *MarketInit) Kind() Kind        { return KindMarketInit }
func (m *MarketInit) AccountID() string { return "" }
func (m *MarketInit) MarketID() string  { return m.Market }

// MarkPriceUpdate carries a new mark price from the oracle edge.
type MarkPriceUpdate struct {
	Market string
	Price  decimal.Decimal // >= 0
}

func (m *MarkPriceUpdate) Kind() Kind        { return KindMarkPriceUpdate }
func (m *MarkPriceUpdate) AccountID() string { return "" }
func (m *MarkPriceUpdate) MarketID() string  { return m.Market }
