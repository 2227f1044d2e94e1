package state_test

import (
	"testing"

	"crossmargin/internal/num"
	"crossmargin/internal/state"
)

func TestSortedIteration(t *testing.T) {
	st := state.New()
	for _, id := range []string{"zulu", "alpha", "mike"} {
		st.Accounts[state.AccountID(id)] = state.NewAccount(state.AccountID(id))
	}
	ids := st.SortedAccountIDs()
	want := []state.AccountID{"alpha", "mike", "zulu"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("sorted ids = %v, want %v", ids, want)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	st := state.New()
	a := state.NewAccount("alice")
	a.Collateral = num.MustParse("100")
	a.Positions["BTC-PERP"] = &state.Position{
		MarketID:  "BTC-PERP",
		Quantity:  num.MustParse("10"),
		CostBasis: num.MustParse("500000"),
	}
	a.LastFunding["BTC-PERP"] = num.MustParse("1.5")
	st.Accounts["alice"] = a
	st.Markets["BTC-PERP"] = &state.Market{
		ID:         "BTC-PERP",
		MarkPrice:  num.MustParse("50000"),
		IMFraction: num.MustParse("0.05"),
		MMFraction: num.MustParse("0.03"),
	}
	st.NextSequence = 7

	c := st.Clone()
	if c.NextSequence != 7 {
		t.Errorf("clone sequence = %d, want 7", c.NextSequence)
	}

	// Mutating the clone leaves the original untouched.
	c.Accounts["alice"].Collateral = num.MustParse("0")
	c.Accounts["alice"].Positions["BTC-PERP"].Quantity = num.MustParse("1")
	c.Markets["BTC-PERP"].MarkPrice = num.MustParse("1")

	if !st.Accounts["alice"].Collateral.Equal(num.MustParse("100")) {
		t.Error("clone shares account with original")
	}
	if !st.Accounts["alice"].Positions["BTC-PERP"].Quantity.Equal(num.MustParse("10")) {
		t.Error("clone shares position with original")
	}
	if !st.Markets["BTC-PERP"].MarkPrice.Equal(num.MustParse("50000")) {
		t.Error("clone shares market with original")
	}
}
