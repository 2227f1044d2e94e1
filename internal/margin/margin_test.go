package margin_test

import (
	"testing"

	"crossmargin/internal/margin"
	"crossmargin/internal/num"
	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

func mustMarket(id, mark, im, mm string) *state.Market {
	return &state.Market{
		ID:         state.MarketID(id),
		MarkPrice:  num.MustParse(mark),
		IMFraction: num.MustParse(im),
		MMFraction: num.MustParse(mm),
	}
}

func mustPosition(id, qty, cost string) *state.Position {
	return &state.Position{
		MarketID:  state.MarketID(id),
		Quantity:  num.MustParse(qty),
		CostBasis: num.MustParse(cost),
	}
}

func testState(markets ...*state.Market) *state.State {
	st := state.New()
	for _, m := range markets {
		st.Markets[m.ID] = m
	}
	return st
}

func accountWith(st *state.State, id, collateral string, positions ...*state.Position) *state.Account {
	a := state.NewAccount(state.AccountID(id))
	a.Collateral = num.MustParse(collateral)
	for _, p := range positions {
		a.Positions[p.MarketID] = p
		a.LastFunding[p.MarketID] = decimal.Zero
	}
	st.Accounts[a.ID] = a
	return a
}

func TestUnrealizedPnL_LongAndShort(t *testing.T) {
	m := mustMarket("BTC-PERP", "42000", "0.05", "0.03")

	long := mustPosition("BTC-PERP", "10", "500000")
	got := margin.UnrealizedPnL(long, m)
	if !got.Equal(num.MustParse("-80000")) {
		t.Errorf("long upnl = %s, want -80000", got)
	}

	short := mustPosition("BTC-PERP", "-10", "-500000")
	got = margin.UnrealizedPnL(short, m)
	if !got.Equal(num.MustParse("80000")) {
		t.Errorf("short upnl = %s, want 80000", got)
	}
}

func TestNotional_AbsoluteValue(t *testing.T) {
	m := mustMarket("ETH-PERP", "3000", "0.10", "0.05")
	short := mustPosition("ETH-PERP", "-20", "-60000")
	got := margin.Notional(short, m)
	if !got.Equal(num.MustParse("60000")) {
		t.Errorf("notional = %s, want 60000", got)
	}
}

func TestEquityAndMargins_CrossMarket(t *testing.T) {
	btc := mustMarket("BTC-PERP", "50000", "0.05", "0.03")
	eth := mustMarket("ETH-PERP", "3000", "0.10", "0.05")
	st := testState(btc, eth)
	a := accountWith(st, "charlie", "20000",
		mustPosition("BTC-PERP", "5", "250000"),
		mustPosition("ETH-PERP", "15", "45000"),
	)

	if eq := margin.Equity(a, st); !eq.Equal(num.MustParse("20000")) {
		t.Errorf("equity = %s, want 20000", eq)
	}
	if im := margin.InitialMargin(a, st); !im.Equal(num.MustParse("17000")) {
		t.Errorf("initial margin = %s, want 17000", im)
	}
	if mm := margin.MaintenanceMargin(a, st); !mm.Equal(num.MustParse("9750")) {
		t.Errorf("maintenance margin = %s, want 9750", mm)
	}
}

func TestIsLiquidatable_BoundaryInclusive(t *testing.T) {
	// equity == MM is liquidatable.
	m := mustMarket("BTC-PERP", "100", "0.10", "0.05")
	st := testState(m)
	// 10 @ 100: notional 1000, MM 50. Collateral tuned so equity == 50.
	a := accountWith(st, "edge", "50", mustPosition("BTC-PERP", "10", "1000"))

	if !margin.IsLiquidatable(a, st) {
		t.Error("equity == MM should be liquidatable")
	}

	a.Collateral = num.MustParse("50.01")
	if margin.IsLiquidatable(a, st) {
		t.Error("equity just above MM should not be liquidatable")
	}
}

func TestMissingMarket_DegradesToZero(t *testing.T) {
	st := testState()
	a := accountWith(st, "ghost", "1000", mustPosition("GONE-PERP", "10", "5000"))

	// Mark and fractions read as zero: upnl = -cost, notional/IM/MM = 0.
	if eq := margin.Equity(a, st); !eq.Equal(num.MustParse("-4000")) {
		t.Errorf("equity = %s, want -4000", eq)
	}
	if im := margin.InitialMargin(a, st); !im.IsZero() {
		t.Errorf("initial margin = %s, want 0", im)
	}
	if mm := margin.MaintenanceMargin(a, st); !mm.IsZero() {
		t.Errorf("maintenance margin = %s, want 0", mm)
	}
}

func TestSummarize(t *testing.T) {
	m := mustMarket("BTC-PERP", "41000", "0.05", "0.03")
	st := testState(m)
	a := accountWith(st, "alice", "100000", mustPosition("BTC-PERP", "10", "500000"))

	sum := margin.Summarize(a, st)
	if !sum.Equity.Equal(num.MustParse("10000")) {
		t.Errorf("equity = %s, want 10000", sum.Equity)
	}
	if !sum.MaintenanceMargin.Equal(num.MustParse("12300")) {
		t.Errorf("mm = %s, want 12300", sum.MaintenanceMargin)
	}
	if !sum.Liquidatable {
		t.Error("expected liquidatable summary")
	}
}
