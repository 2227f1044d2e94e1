// Package risk runs pre-trade and pre-withdrawal validation against a
// read-only view of state. Rejections are values, not errors: the engine
// turns them into TradeRejected / WithdrawalRejected log events.
package risk

import (
	"crossmargin/internal/margin"
	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

// Rejection reasons form a small closed set.
const (
	ReasonInitialMargin          = "initial_margin"
	ReasonInsufficientCollateral = "insufficient_collateral"
	ReasonZeroQuantity           = "zero_quantity"
	ReasonUnknownMarket          = "unknown_market"
	ReasonUnknownAccount         = "unknown_account"
)

// Decision is the outcome of a validation check.
type Decision struct {
	Accept bool
	Reason string // one of the Reason constants when Accept is false
	Fill   FillResult
}

func accept(fr FillResult) Decision { return Decision{Accept: true, Fill: fr} }
func reject(reason string) Decision { return Decision{Reason: reason} }

// SimulateTrade simulates a fill in a scratch copy of the affected
// account's position and gates it on initial margin. Risk-reducing fills
// (strictly smaller magnitude, no flip) are accepted unconditionally.
func SimulateTrade(s *state.State, accountID state.AccountID, marketID state.MarketID, fillQty, fillPrice decimal.Decimal) Decision {
	if fillQty.IsZero() {
		return reject(ReasonZeroQuantity)
	}
	mkt, ok := s.Markets[marketID]
	if !ok {
		return reject(ReasonUnknownMarket)
	}
	acct, ok := s.Accounts[accountID]
	if !ok {
		return reject(ReasonUnknownAccount)
	}

	oldQty, oldCost := decimal.Zero, decimal.Zero
	if pos := acct.Positions[marketID]; pos != nil {
		oldQty, oldCost = pos.Quantity, pos.CostBasis
	}

	fr := ApplyFill(oldQty, oldCost, fillQty, fillPrice)

	if RiskReducing(oldQty, fillQty) {
		return accept(fr)
	}

	simCollateral := acct.Collateral.Add(fr.RealizedPnL)
	simEquity, simIM := simulateAccountMargin(s, acct, mkt, fr, simCollateral)
	if simEquity.Cmp(simIM) < 0 {
		return reject(ReasonInitialMargin)
	}
	return accept(fr)
}

// simulateAccountMargin computes equity and initial margin over the whole
// account with the traded market's position replaced by its simulated
// values. All other positions are read as-is.
func simulateAccountMargin(s *state.State, acct *state.Account, mkt *state.Market, fr FillResult, simCollateral decimal.Decimal) (equity, im decimal.Decimal) {
	equity = simCollateral
	im = decimal.Zero

	for _, mid := range acct.SortedPositionMarkets() {
		if mid == mkt.ID {
			continue
		}
		p := acct.Positions[mid]
		m := s.Markets[mid]
		equity = equity.Add(margin.UnrealizedPnL(p, m))
		if m != nil {
			im = im.Add(margin.Notional(p, m).Mul(m.IMFraction))
		}
	}

	if !fr.NewQuantity.IsZero() {
		simPos := &state.Position{MarketID: mkt.ID, Quantity: fr.NewQuantity, CostBasis: fr.NewCostBasis}
		equity = equity.Add(margin.UnrealizedPnL(simPos, mkt))
		im = im.Add(margin.Notional(simPos, mkt).Mul(mkt.IMFraction))
	}
	return equity, im
}

// CheckWithdrawal gates a withdrawal: the amount must be covered by
// collateral, and post-withdrawal equity must still clear initial margin.
func CheckWithdrawal(s *state.State, accountID state.AccountID, amount decimal.Decimal) Decision {
	acct, ok := s.Accounts[accountID]
	if !ok {
		return reject(ReasonUnknownAccount)
	}
	if amount.Cmp(acct.Collateral) > 0 {
		return reject(ReasonInsufficientCollateral)
	}
	if margin.Equity(acct, s).Sub(amount).Cmp(margin.InitialMargin(acct, s)) < 0 {
		return reject(ReasonInitialMargin)
	}
	return Decision{Accept: true}
}
