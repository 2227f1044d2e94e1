package state

import "github.com/shopspring/decimal"

// Position is an account's exposure in one market. A stored position always
// has non-zero quantity; positions are deleted the moment quantity reaches
// zero. While open, sign(CostBasis) == sign(Quantity), and
// CostBasis/Quantity recovers the average entry price.
type Position struct {
	MarketID  MarketID
	Quantity  decimal.Decimal // signed, != 0
	CostBasis decimal.Decimal // signed, same sign as Quantity
}
