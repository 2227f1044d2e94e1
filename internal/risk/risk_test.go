package risk_test

import (
	"testing"

	"crossmargin/internal/num"
	"crossmargin/internal/risk"
	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

// --- Test helpers ---

func dec(s string) decimal.Decimal { return num.MustParse(s) }

func newMarket(st *state.State, id, mark, im, mm string) {
	mid := state.MarketID(id)
	st.Markets[mid] = &state.Market{
		ID:         mid,
		MarkPrice:  dec(mark),
		IMFraction: dec(im),
		MMFraction: dec(mm),
	}
}

func newAccount(st *state.State, id, collateral string) *state.Account {
	a := state.NewAccount(state.AccountID(id))
	a.Collateral = dec(collateral)
	st.Accounts[a.ID] = a
	return a
}

func givePosition(a *state.Account, market, qty, cost string) {
	mid := state.MarketID(market)
	a.Positions[mid] = &state.Position{MarketID: mid, Quantity: dec(qty), CostBasis: dec(cost)}
	a.LastFunding[mid] = decimal.Zero
}

// --- ApplyFill cases ---

func TestApplyFill_Increase(t *testing.T) {
	fr := risk.ApplyFill(dec("10"), dec("500000"), dec("5"), dec("52000"))
	if fr.Case != risk.FillIncrease {
		t.Fatalf("case = %s, want increase", fr.Case)
	}
	if !fr.NewQuantity.Equal(dec("15")) || !fr.NewCostBasis.Equal(dec("760000")) {
		t.Errorf("got (%s, %s), want (15, 760000)", fr.NewQuantity, fr.NewCostBasis)
	}
	if !fr.RealizedPnL.IsZero() {
		t.Errorf("realized = %s, want 0", fr.RealizedPnL)
	}
}

func TestApplyFill_FreshOpenShort(t *testing.T) {
	fr := risk.ApplyFill(decimal.Zero, decimal.Zero, dec("-20"), dec("3000"))
	if fr.Case != risk.FillIncrease {
		t.Fatalf("case = %s, want increase", fr.Case)
	}
	if !fr.NewQuantity.Equal(dec("-20")) || !fr.NewCostBasis.Equal(dec("-60000")) {
		t.Errorf("got (%s, %s), want (-20, -60000)", fr.NewQuantity, fr.NewCostBasis)
	}
}

func TestApplyFill_ExactClose(t *testing.T) {
	fr := risk.ApplyFill(dec("10"), dec("500000"), dec("-10"), dec("41000"))
	if fr.Case != risk.FillExactClose {
		t.Fatalf("case = %s, want exact_close", fr.Case)
	}
	if !fr.NewQuantity.IsZero() {
		t.Errorf("new quantity = %s, want 0", fr.NewQuantity)
	}
	if !fr.RealizedPnL.Equal(dec("-90000")) {
		t.Errorf("realized = %s, want -90000", fr.RealizedPnL)
	}
}

func TestApplyFill_Reduce(t *testing.T) {
	// Long 10 @ avg 50000, sell 4 @ 52000: realize 4 * 2000 = 8000.
	fr := risk.ApplyFill(dec("10"), dec("500000"), dec("-4"), dec("52000"))
	if fr.Case != risk.FillReduce {
		t.Fatalf("case = %s, want reduce", fr.Case)
	}
	if !fr.NewQuantity.Equal(dec("6")) {
		t.Errorf("new quantity = %s, want 6", fr.NewQuantity)
	}
	if !fr.NewCostBasis.Equal(dec("300000")) {
		t.Errorf("new cost = %s, want 300000", fr.NewCostBasis)
	}
	if !fr.RealizedPnL.Equal(dec("8000")) {
		t.Errorf("realized = %s, want 8000", fr.RealizedPnL)
	}
}

func TestApplyFill_ReduceShort(t *testing.T) {
	// Short 10 @ avg 50000, buy back 4 @ 48000: realize 4 * 2000 = 8000.
	fr := risk.ApplyFill(dec("-10"), dec("-500000"), dec("4"), dec("48000"))
	if fr.Case != risk.FillReduce {
		t.Fatalf("case = %s, want reduce", fr.Case)
	}
	if !fr.NewQuantity.Equal(dec("-6")) || !fr.NewCostBasis.Equal(dec("-300000")) {
		t.Errorf("got (%s, %s), want (-6, -300000)", fr.NewQuantity, fr.NewCostBasis)
	}
	if !fr.RealizedPnL.Equal(dec("8000")) {
		t.Errorf("realized = %s, want 8000", fr.RealizedPnL)
	}
}

func TestApplyFill_ReduceClosure(t *testing.T) {
	// |new| + |closed| == |old| and the cost basis splits exactly.
	old, oldCost := dec("10"), dec("500000")
	fill := dec("-4")
	fr := risk.ApplyFill(old, oldCost, fill, dec("52000"))

	if !fr.NewQuantity.Abs().Add(fill.Abs()).Equal(old.Abs()) {
		t.Errorf("quantity closure broken: %s + %s != %s", fr.NewQuantity.Abs(), fill.Abs(), old.Abs())
	}
	closedShare := oldCost.Sub(fr.NewCostBasis)
	if !closedShare.Equal(dec("200000")) {
		t.Errorf("closed cost share = %s, want 200000", closedShare)
	}
}

func TestApplyFill_Flip(t *testing.T) {
	// Long 10 @ avg 50000, sell 25 @ 42000: close leg realizes -80000,
	// fresh short 15 opens at 42000.
	fr := risk.ApplyFill(dec("10"), dec("500000"), dec("-25"), dec("42000"))
	if fr.Case != risk.FillFlip {
		t.Fatalf("case = %s, want flip", fr.Case)
	}
	if !fr.NewQuantity.Equal(dec("-15")) || !fr.NewCostBasis.Equal(dec("-630000")) {
		t.Errorf("got (%s, %s), want (-15, -630000)", fr.NewQuantity, fr.NewCostBasis)
	}
	if !fr.RealizedPnL.Equal(dec("-80000")) {
		t.Errorf("realized = %s, want -80000", fr.RealizedPnL)
	}
}

func TestApplyFill_FlipEquivalence(t *testing.T) {
	// One flip == exact close followed by a fresh open at the same price.
	oldQty, oldCost := dec("10"), dec("500000")
	price := dec("42000")

	flip := risk.ApplyFill(oldQty, oldCost, dec("-25"), price)

	closeLeg := risk.ApplyFill(oldQty, oldCost, oldQty.Neg(), price)
	openLeg := risk.ApplyFill(decimal.Zero, decimal.Zero, dec("-15"), price)

	if !flip.NewQuantity.Equal(openLeg.NewQuantity) || !flip.NewCostBasis.Equal(openLeg.NewCostBasis) {
		t.Errorf("flip position (%s, %s) != close+open (%s, %s)",
			flip.NewQuantity, flip.NewCostBasis, openLeg.NewQuantity, openLeg.NewCostBasis)
	}
	wantPnL := closeLeg.RealizedPnL.Add(openLeg.RealizedPnL)
	if !flip.RealizedPnL.Equal(wantPnL) {
		t.Errorf("flip realized %s != close+open realized %s", flip.RealizedPnL, wantPnL)
	}
}

// --- SimulateTrade ---

func TestSimulateTrade_AcceptWithinIM(t *testing.T) {
	st := state.New()
	newMarket(st, "ETH-PERP", "3000", "0.10", "0.05")
	newAccount(st, "bob", "10000")

	d := risk.SimulateTrade(st, "bob", "ETH-PERP", dec("20"), dec("3000"))
	if !d.Accept {
		t.Fatalf("rejected: %s", d.Reason)
	}
}

func TestSimulateTrade_RejectOnIM(t *testing.T) {
	st := state.New()
	newMarket(st, "ETH-PERP", "3000", "0.10", "0.05")
	a := newAccount(st, "bob", "10000")
	givePosition(a, "ETH-PERP", "20", "60000")

	// Doubling up needs IM 12000 against equity 10000.
	d := risk.SimulateTrade(st, "bob", "ETH-PERP", dec("20"), dec("3000"))
	if d.Accept {
		t.Fatal("expected rejection")
	}
	if d.Reason != risk.ReasonInitialMargin {
		t.Errorf("reason = %s, want %s", d.Reason, risk.ReasonInitialMargin)
	}
}

func TestSimulateTrade_CrossMarginIM(t *testing.T) {
	st := state.New()
	newMarket(st, "BTC-PERP", "50000", "0.05", "0.03")
	newMarket(st, "ETH-PERP", "3000", "0.10", "0.05")
	a := newAccount(st, "charlie", "20000")
	givePosition(a, "BTC-PERP", "5", "250000")

	// Combined IM 12500 + 9000 > 20000.
	d := risk.SimulateTrade(st, "charlie", "ETH-PERP", dec("30"), dec("3000"))
	if d.Accept {
		t.Fatal("expected cross-margin rejection")
	}
	if d.Reason != risk.ReasonInitialMargin {
		t.Errorf("reason = %s, want %s", d.Reason, risk.ReasonInitialMargin)
	}

	// Combined IM 12500 + 4500 <= 20000.
	d = risk.SimulateTrade(st, "charlie", "ETH-PERP", dec("15"), dec("3000"))
	if !d.Accept {
		t.Fatalf("rejected: %s", d.Reason)
	}
}

func TestSimulateTrade_RiskReducingExemption(t *testing.T) {
	// Equity between MM and IM: 1000 @ avg 100, mark 96.
	// equity 6000, MM 4800, IM 9600.
	st := state.New()
	newMarket(st, "XYZ-PERP", "96", "0.10", "0.05")
	a := newAccount(st, "dave", "10000")
	givePosition(a, "XYZ-PERP", "1000", "100000")

	// Reduce is exempt from the IM gate.
	if d := risk.SimulateTrade(st, "dave", "XYZ-PERP", dec("-400"), dec("96")); !d.Accept {
		t.Errorf("risk-reducing fill rejected: %s", d.Reason)
	}

	// Exact close is risk-reducing too.
	if d := risk.SimulateTrade(st, "dave", "XYZ-PERP", dec("-1000"), dec("96")); !d.Accept {
		t.Errorf("exact close rejected: %s", d.Reason)
	}

	// Increasing from the same state fails the gate.
	if d := risk.SimulateTrade(st, "dave", "XYZ-PERP", dec("100"), dec("96")); d.Accept {
		t.Error("increase accepted below IM")
	}

	// A large flip creates fresh exposure and fails the gate.
	if d := risk.SimulateTrade(st, "dave", "XYZ-PERP", dec("-2500"), dec("96")); d.Accept {
		t.Error("flip accepted below IM")
	}
}

func TestSimulateTrade_Preconditions(t *testing.T) {
	st := state.New()
	newMarket(st, "BTC-PERP", "50000", "0.05", "0.03")
	newAccount(st, "alice", "100000")

	if d := risk.SimulateTrade(st, "alice", "BTC-PERP", decimal.Zero, dec("50000")); d.Accept || d.Reason != risk.ReasonZeroQuantity {
		t.Errorf("zero quantity: got (%v, %s)", d.Accept, d.Reason)
	}
	if d := risk.SimulateTrade(st, "alice", "NOPE-PERP", dec("1"), dec("50000")); d.Accept || d.Reason != risk.ReasonUnknownMarket {
		t.Errorf("unknown market: got (%v, %s)", d.Accept, d.Reason)
	}
	if d := risk.SimulateTrade(st, "nobody", "BTC-PERP", dec("1"), dec("50000")); d.Accept || d.Reason != risk.ReasonUnknownAccount {
		t.Errorf("unknown account: got (%v, %s)", d.Accept, d.Reason)
	}
}

// --- CheckWithdrawal ---

func TestCheckWithdrawal(t *testing.T) {
	st := state.New()
	newMarket(st, "BTC-PERP", "50000", "0.05", "0.03")
	a := newAccount(st, "alice", "100000")
	givePosition(a, "BTC-PERP", "10", "500000")

	// IM is 25000; equity 100000. Withdrawing 75000 leaves exactly IM.
	if d := risk.CheckWithdrawal(st, "alice", dec("75000")); !d.Accept {
		t.Errorf("boundary withdrawal rejected: %s", d.Reason)
	}
	if d := risk.CheckWithdrawal(st, "alice", dec("75001")); d.Accept || d.Reason != risk.ReasonInitialMargin {
		t.Errorf("IM-breaking withdrawal: got (%v, %s)", d.Accept, d.Reason)
	}
	if d := risk.CheckWithdrawal(st, "alice", dec("100001")); d.Accept || d.Reason != risk.ReasonInsufficientCollateral {
		t.Errorf("overdraw: got (%v, %s)", d.Accept, d.Reason)
	}
	if d := risk.CheckWithdrawal(st, "nobody", dec("1")); d.Accept || d.Reason != risk.ReasonUnknownAccount {
		t.Errorf("unknown account: got (%v, %s)", d.Accept, d.Reason)
	}
}
