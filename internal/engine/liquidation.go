package engine

import (
	"crossmargin/internal/event"
	"crossmargin/internal/margin"
	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

// Liquidation runs inside the sequencer, live mode only — replay never
// scans. The scan scope is fixed by the event kind just applied:
// MarkPriceUpdate (with a price move) and FundingUpdate scan every holder
// of the market, an applied TradeFill scans its own account, and
// LiquidationFill scans nothing, which is what keeps one pass from
// recursing into itself.

// scanMarket liquidation-checks every account holding a position in the
// market, in account-id order. The candidate set is fixed up front;
// accounts that become liquidatable as a second-order effect of closes are
// not added mid-pass.
func (e *Engine) scanMarket(mid state.MarketID) (int, error) {
	var candidates []state.AccountID
	for _, aid := range e.st.SortedAccountIDs() {
		if _, ok := e.st.Accounts[aid].Positions[mid]; ok {
			candidates = append(candidates, aid)
		}
	}

	total := 0
	for _, aid := range candidates {
		n, err := e.liquidateAccount(aid)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// liquidateAccount fully closes positions, largest notional first, until
// the account is healthy or empty. Each close is a LiquidationFill fed
// through commit, so live state and replayed state move by identical code.
func (e *Engine) liquidateAccount(aid state.AccountID) (int, error) {
	count := 0
	for {
		acct, ok := e.st.Accounts[aid]
		if !ok || len(acct.Positions) == 0 {
			break
		}
		if !margin.IsLiquidatable(acct, e.st) {
			break
		}

		mid := e.rankTopPosition(acct)
		pos := acct.Positions[mid]
		mark := decimal.Zero
		if mkt := e.st.Markets[mid]; mkt != nil {
			mark = mkt.MarkPrice
		}

		fill := &event.LiquidationFill{
			Account:  string(aid),
			Market:   string(mid),
			Quantity: pos.Quantity,
			Price:    mark,
		}
		env, err := e.commit(fill)
		if err != nil {
			return count, err
		}
		count++

		if e.metrics != nil {
			e.metrics.LiquidationFills.WithLabelValues(string(mid)).Inc()
		}
		e.logger.Warn().
			Uint64("sequence", env.Sequence).
			Str("account", string(aid)).
			Str("market", string(mid)).
			Str("quantity", fill.Quantity.String()).
			Str("mark_price", fill.Price.String()).
			Msg("position liquidated")
	}

	if acct, ok := e.st.Accounts[aid]; ok && acct.BankruptcyDeficit.Sign() > 0 && count > 0 {
		if e.metrics != nil {
			e.metrics.Bankruptcies.Inc()
		}
		e.logger.Error().
			Str("account", string(aid)).
			Str("deficit", acct.BankruptcyDeficit.String()).
			Msg("account liquidated into deficit")
	}

	return count, nil
}

// rankTopPosition picks the position with the largest notional; ties break
// toward the lexicographically smallest market id. Ascending iteration
// with a strict > comparison gives exactly that.
func (e *Engine) rankTopPosition(acct *state.Account) state.MarketID {
	var (
		best         state.MarketID
		bestNotional decimal.Decimal
		first        = true
	)
	for _, mid := range acct.SortedPositionMarkets() {
		n := margin.Notional(acct.Positions[mid], e.st.Markets[mid])
		if first || n.Cmp(bestNotional) > 0 {
			best, bestNotional, first = mid, n, false
		}
	}
	return best
}
