package event

import "github.com/shopspring/decimal"

// TradeFill is a validated fill against an account's position in a market.
// Quantity is signed: positive buys, negative sells.
type TradeFill struct {
	Account  string
	Market   string
	Quantity decimal.Decimal // != 0
	Price    decimal.Decimal // > 0
}

func (t *TradeFill) Kind() Kind        { return KindTradeFill }
func (t *TradeFill) AccountID() string { return t.Account }
func (t *TradeFill) MarketID() string  { return t.Market }

// TradeRejected records a fill that failed pre-trade simulation. The
// original fill parameters are preserved so a live rerun can reproduce the
// attempt. Informational: applying it mutates nothing.
type TradeRejected struct {
	Account  string
	Market   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Reason   string
}

func (t *TradeRejected) Kind() Kind        { return KindTradeRejected }
func (t *TradeRejected) AccountID() string { return t.Account }
func (t *TradeRejected) MarketID() string  { return t.Market }
