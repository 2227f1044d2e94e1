package event

import "github.com/shopspring/decimal"

// Deposit credits collateral. The first Deposit referencing an account id
// creates the account.
type Deposit struct {
	Account string
	Amount  decimal.Decimal // > 0
}

func (d *Deposit) Kind() Kind        { return KindDeposit }
func (d *Deposit) AccountID() string { return d.Account }
func (d *Deposit) MarketID() string  { return "" }
