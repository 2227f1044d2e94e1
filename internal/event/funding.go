package event

import "github.com/shopspring/decimal"

// FundingUpdate advances a market's cumulative funding index. Applying it
// settles funding against every account holding a position in the market,
// in account-id order.
type FundingUpdate struct {
	Market   string
	NewIndex decimal.Decimal // signed cumulative index
}

func (f *FundingUpdate) Kind() Kind        { return KindFundingUpdate }
func (f *FundingUpdate) AccountID() string { return "" }
func (f *FundingUpdate) MarketID() string  { return f.Market }
