package event

import "github.com/shopspring/decimal"

// Withdraw debits collateral. An event in the log is understood to be
// already validated: live mode runs the withdrawal check before appending,
// replay trusts the log.
type Withdraw struct {
	Account string
	Amount  decimal.Decimal
}

func (w *Withdraw) Kind() Kind        { return KindWithdraw }
func (w *Withdraw) AccountID() string { return w.Account }
func (w *Withdraw) MarketID() string  { return "" }

// WithdrawalRejected records a failed withdrawal check. Informational:
// applying it mutates nothing.
type WithdrawalRejected struct {
	Account string
	Amount  decimal.Decimal
	Reason  string
}

func (w *WithdrawalRejected) Kind() Kind        { return KindWithdrawalRejected }
func (w *WithdrawalRejected) AccountID() string { return w.Account }
func (w *WithdrawalRejected) MarketID() string  { return "" }
