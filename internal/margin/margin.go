// Package margin is the pure cross-margin math: unrealized PnL, equity,
// initial and maintenance margin, and the liquidation predicate. It reads
// state and never mutates it.
//
// A position whose market is missing from state (should not occur in a
// well-formed log) is valued at a zero mark price with zero fractions: its
// unrealized PnL is -cost_basis and its notional, IM and MM are zero — a
// deterministic degradation, not an error. Summation follows sorted position iteration.
package margin

import (
	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

// UnrealizedPnL = mark_price * quantity - cost_basis, signed.
func UnrealizedPnL(p *state.Position, m *state.Market) decimal.Decimal {
	if m == nil {
		return p.CostBasis.Neg()
	}
	return m.MarkPrice.Mul(p.Quantity).Sub(p.CostBasis)
}

// Notional = |mark_price * quantity|.
func Notional(p *state.Position, m *state.Market) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return m.MarkPrice.Mul(p.Quantity).Abs()
}

// Equity = collateral + sum of unrealized PnL over all positions.
func Equity(a *state.Account, s *state.State) decimal.Decimal {
	eq := a.Collateral
	for _, mkt := range a.SortedPositionMarkets() {
		eq = eq.Add(UnrealizedPnL(a.Positions[mkt], s.Markets[mkt]))
	}
	return eq
}

// InitialMargin = sum of notional * im_fraction over all positions.
func InitialMargin(a *state.Account, s *state.State) decimal.Decimal {
	im := decimal.Zero
	for _, mkt := range a.SortedPositionMarkets() {
		m := s.Markets[mkt]
		if m == nil {
			continue
		}
		im = im.Add(Notional(a.Positions[mkt], m).Mul(m.IMFraction))
	}
	return im
}

// MaintenanceMargin = sum of notional * mm_fraction over all positions.
func MaintenanceMargin(a *state.Account, s *state.State) decimal.Decimal {
	mm := decimal.Zero
	for _, mkt := range a.SortedPositionMarkets() {
		m := s.Markets[mkt]
		if m == nil {
			continue
		}
		mm = mm.Add(Notional(a.Positions[mkt], m).Mul(m.MMFraction))
	}
	return mm
}

// IsLiquidatable reports equity <= maintenance margin. The boundary
// equity == MM is liquidatable.
func IsLiquidatable(a *state.Account, s *state.State) bool {
	return Equity(a, s).Cmp(MaintenanceMargin(a, s)) <= 0
}

// Summary bundles the derived margin view of one account, for the read side.
type Summary struct {
	AccountID         state.AccountID
	Collateral        decimal.Decimal
	Equity            decimal.Decimal
	InitialMargin     decimal.Decimal
	MaintenanceMargin decimal.Decimal
	Liquidatable      bool
	BankruptcyDeficit decimal.Decimal
}

func Summarize(a *state.Account, s *state.State) Summary {
	eq := Equity(a, s)
	mm := MaintenanceMargin(a, s)
	return Summary{
		AccountID:         a.ID,
		Collateral:        a.Collateral,
		Equity:            eq,
		InitialMargin:     InitialMargin(a, s),
		MaintenanceMargin: mm,
		Liquidatable:      eq.Cmp(mm) <= 0,
		BankruptcyDeficit: a.BankruptcyDeficit,
	}
}
