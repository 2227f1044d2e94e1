package state

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Account owns its positions and last-funding marks exclusively. Collateral
// is the realized cash balance; it goes negative only through liquidation
// into deficit, in which case BankruptcyDeficit mirrors the shortfall.
type Account struct {
	ID         AccountID
	Collateral decimal.Decimal
	Positions  map[MarketID]*Position
	// LastFunding records, per held market, the cumulative funding index
	// observed at the account's last settlement. Defined for exactly the
	// markets with an open position.
	LastFunding       map[MarketID]decimal.Decimal
	BankruptcyDeficit decimal.Decimal // non-negative, persistent once recorded
}

func NewAccount(id AccountID) *Account {
	return &Account{
		ID:          id,
		Positions:   make(map[MarketID]*Position),
		LastFunding: make(map[MarketID]decimal.Decimal),
	}
}

// SortedPositionMarkets returns the markets this account holds positions
// in, in lexicographic order.
func (a *Account) SortedPositionMarkets() []MarketID {
	ids := make([]MarketID, 0, len(a.Positions))
	for id := range a.Positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (a *Account) Clone() *Account {
	c := &Account{
		ID:                a.ID,
		Collateral:        a.Collateral,
		Positions:         make(map[MarketID]*Position, len(a.Positions)),
		LastFunding:       make(map[MarketID]decimal.Decimal, len(a.LastFunding)),
		BankruptcyDeficit: a.BankruptcyDeficit,
	}
	for id, p := range a.Positions {
		pc := *p
		c.Positions[id] = &pc
	}
	for id, f := range a.LastFunding {
		c.LastFunding[id] = f
	}
	return c
}
