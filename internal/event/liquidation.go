package event

import "github.com/shopspring/decimal"

// LiquidationFill is emitted by the liquidation orchestrator when it
// force-closes a position. Quantity is the position's signed quantity at
// close; Price is the mark price at emission time. Applied as an exact
// close, by the same code in live mode and replay.
type LiquidationFill struct {
	Account  string
	Market   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

func (l *LiquidationFill) Kind() Kind        { return KindLiquidationFill }
func (l *LiquidationFill) AccountID() string { return l.Account }
func (l *LiquidationFill) MarketID() string  { return l.Market }
