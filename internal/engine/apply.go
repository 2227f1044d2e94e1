package engine

import (
	"fmt"

	"crossmargin/internal/event"
	"crossmargin/internal/risk"
	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

// Apply is the pure event-to-state transition. It is the only code that
// mutates State, shared verbatim by live processing and replay. It never
// emits events, never scans, and reads nothing but (state, event) — no
// clock, no randomness, no I/O.
//
// Events in a log are understood to be already validated (live mode
// validates before appending); structural violations therefore surface as
// malformed-event or invariant errors and leave state untouched.
func Apply(st *state.State, env event.Envelope) error {
	if env.Sequence != st.NextSequence {
		return fmt.Errorf("%w: got %d, want %d", ErrNonMonotonicSequence, env.Sequence, st.NextSequence)
	}

	var err error
	switch p := env.Payload.(type) {
	case *event.MarketInit:
		err = applyMarketInit(st, p)
	case *event.Deposit:
		err = applyDeposit(st, p)
	case *event.Withdraw:
		err = applyWithdraw(st, p)
	case *event.TradeFill:
		err = applyFill(st, p.Account, p.Market, p.Quantity, p.Price)
	case *event.MarkPriceUpdate:
		err = applyMarkPrice(st, p)
	case *event.FundingUpdate:
		err = applyFunding(st, p)
	case *event.LiquidationFill:
		err = applyLiquidationFill(st, p)
	case *event.TradeRejected, *event.WithdrawalRejected:
		// Informational records; no state mutation.
	default:
		err = fmt.Errorf("%w: unknown payload %T", ErrMalformedEvent, env.Payload)
	}
	if err != nil {
		return err
	}

	st.NextSequence++
	return nil
}

func applyMarketInit(st *state.State, p *event.MarketInit) error {
	id := state.MarketID(p.Market)
	if p.Market == "" {
		return fmt.Errorf("%w: MarketInit with empty market id", ErrMalformedEvent)
	}
	if _, exists := st.Markets[id]; exists {
		return fmt.Errorf("%w: duplicate MarketInit for %s", ErrMalformedEvent, p.Market)
	}
	if p.IMFraction.Sign() < 0 || p.IMFraction.Cmp(decimal.NewFromInt(1)) > 0 {
		return fmt.Errorf("%w: im_fraction %s outside [0,1]", ErrInvariantViolation, p.IMFraction)
	}
	if p.MMFraction.Sign() < 0 || p.MMFraction.Cmp(p.IMFraction) > 0 {
		return fmt.Errorf("%w: mm_fraction %s outside [0, im_fraction %s]", ErrInvariantViolation, p.MMFraction, p.IMFraction)
	}
	if p.InitialMarkPrice.Sign() < 0 {
		return fmt.Errorf("%w: negative initial mark price %s", ErrMalformedEvent, p.InitialMarkPrice)
	}
	st.Markets[id] = &state.Market{
		ID:         id,
		MarkPrice:  p.InitialMarkPrice,
		IMFraction: p.IMFraction,
		MMFraction: p.MMFraction,
	}
	return nil
}

func applyDeposit(st *state.State, p *event.Deposit) error {
	if p.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive deposit %s", ErrMalformedEvent, p.Amount)
	}
	id := state.AccountID(p.Account)
	acct, ok := st.Accounts[id]
	if !ok {
		acct = state.NewAccount(id)
		st.Accounts[id] = acct
	}
	acct.Collateral = acct.Collateral.Add(p.Amount)
	return nil
}

func applyWithdraw(st *state.State, p *event.Withdraw) error {
	acct, ok := st.Accounts[state.AccountID(p.Account)]
	if !ok {
		return fmt.Errorf("%w: Withdraw for unknown account %s", ErrMalformedEvent, p.Account)
	}
	acct.Collateral = acct.Collateral.Sub(p.Amount)
	return nil
}

func applyFill(st *state.State, account, market string, qty, price decimal.Decimal) error {
	acct, ok := st.Accounts[state.AccountID(account)]
	if !ok {
		return fmt.Errorf("%w: fill for unknown account %s", ErrMalformedEvent, account)
	}
	mid := state.MarketID(market)
	mkt, ok := st.Markets[mid]
	if !ok {
		return fmt.Errorf("%w: fill for unknown market %s", ErrMalformedEvent, market)
	}
	if qty.IsZero() {
		return fmt.Errorf("%w: zero-quantity fill", ErrMalformedEvent)
	}

	oldQty, oldCost := decimal.Zero, decimal.Zero
	pos := acct.Positions[mid]
	if pos != nil {
		oldQty, oldCost = pos.Quantity, pos.CostBasis
	}

	fr := risk.ApplyFill(oldQty, oldCost, qty, price)
	if !fr.NewQuantity.IsZero() && !fr.NewCostBasis.IsZero() && fr.NewCostBasis.Sign() != fr.NewQuantity.Sign() {
		return fmt.Errorf("%w: cost basis %s disagrees with quantity %s", ErrInvariantViolation, fr.NewCostBasis, fr.NewQuantity)
	}

	acct.Collateral = acct.Collateral.Add(fr.RealizedPnL)

	if fr.NewQuantity.IsZero() {
		delete(acct.Positions, mid)
		delete(acct.LastFunding, mid)
		return nil
	}

	if pos == nil {
		acct.Positions[mid] = &state.Position{MarketID: mid, Quantity: fr.NewQuantity, CostBasis: fr.NewCostBasis}
		// A fresh position starts its funding clock at the market's
		// current cumulative index.
		acct.LastFunding[mid] = mkt.CumulativeFundingIndex
		return nil
	}
	pos.Quantity = fr.NewQuantity
	pos.CostBasis = fr.NewCostBasis
	return nil
}

func applyMarkPrice(st *state.State, p *event.MarkPriceUpdate) error {
	mkt, ok := st.Markets[state.MarketID(p.Market)]
	if !ok {
		return fmt.Errorf("%w: MarkPriceUpdate for unknown market %s", ErrMalformedEvent, p.Market)
	}
	if p.Price.Sign() < 0 {
		return fmt.Errorf("%w: negative mark price %s", ErrMalformedEvent, p.Price)
	}
	mkt.MarkPrice = p.Price
	return nil
}

func applyFunding(st *state.State, p *event.FundingUpdate) error {
	mid := state.MarketID(p.Market)
	mkt, ok := st.Markets[mid]
	if !ok {
		return fmt.Errorf("%w: FundingUpdate for unknown market %s", ErrMalformedEvent, p.Market)
	}

	// Every holder's funding mark is checked before any collateral moves,
	// so an invariant breach leaves state untouched.
	ids := st.SortedAccountIDs()
	for _, aid := range ids {
		acct := st.Accounts[aid]
		if _, ok := acct.Positions[mid]; !ok {
			continue
		}
		if _, ok := acct.LastFunding[mid]; !ok {
			return fmt.Errorf("%w: position in %s with no funding mark on %s", ErrInvariantViolation, p.Market, aid)
		}
	}

	// Settle every holder once, in account-id order. The iteration walks a
	// pre-sorted key snapshot, so mutating the visited account is safe.
	for _, aid := range ids {
		acct := st.Accounts[aid]
		pos, ok := acct.Positions[mid]
		if !ok {
			continue
		}
		last, ok := acct.LastFunding[mid]
		if !ok {
			return fmt.Errorf("%w: position in %s with no funding mark on %s", ErrInvariantViolation, p.Market, aid)
		}
		delta := last.Sub(p.NewIndex).Mul(pos.Quantity)
		acct.Collateral = acct.Collateral.Add(delta)
		acct.LastFunding[mid] = p.NewIndex
	}

	mkt.CumulativeFundingIndex = p.NewIndex
	return nil
}

func applyLiquidationFill(st *state.State, p *event.LiquidationFill) error {
	acct, ok := st.Accounts[state.AccountID(p.Account)]
	if !ok {
		return fmt.Errorf("%w: LiquidationFill for unknown account %s", ErrMalformedEvent, p.Account)
	}
	mid := state.MarketID(p.Market)
	pos, ok := acct.Positions[mid]
	if !ok {
		return fmt.Errorf("%w: LiquidationFill for missing position %s/%s", ErrMalformedEvent, p.Account, p.Market)
	}
	if !pos.Quantity.Equal(p.Quantity) {
		return fmt.Errorf("%w: liquidation quantity %s != position quantity %s", ErrInvariantViolation, p.Quantity, pos.Quantity)
	}

	// Exact close at the recorded mark price.
	realized := p.Price.Mul(pos.Quantity).Sub(pos.CostBasis)
	acct.Collateral = acct.Collateral.Add(realized)
	delete(acct.Positions, mid)
	delete(acct.LastFunding, mid)

	if len(acct.Positions) == 0 && acct.Collateral.Sign() < 0 {
		// Collateral stays negative; the deficit field is the auditable
		// mirror of the shortfall.
		acct.BankruptcyDeficit = acct.Collateral.Abs()
	}
	return nil
}
