package state

import "github.com/shopspring/decimal"

// Market is a perpetual-futures market. Created by MarketInit; afterwards
// only MarkPrice and CumulativeFundingIndex change.
type Market struct {
	ID                     MarketID
	MarkPrice              decimal.Decimal // >= 0
	IMFraction             decimal.Decimal // in [0,1]
	MMFraction             decimal.Decimal // in [0, IMFraction]
	CumulativeFundingIndex decimal.Decimal // signed
}
