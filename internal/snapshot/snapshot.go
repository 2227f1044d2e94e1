// Package snapshot captures deep value copies of engine state in a
// canonical form: accounts, markets, positions, and funding marks as sorted
// slices with decimal fields rendered as canonical strings. Two snapshots
// of equal state serialize to identical bytes, which is what replay
// verification and the state-hash chain are built on.
package snapshot

import (
	"bytes"
	"encoding/json"

	"crossmargin/internal/state"

	"github.com/shopspring/decimal"
)

type Snapshot struct {
	Sequence uint64        `json:"sequence"`
	Accounts []AccountSnap `json:"accounts"`
	Markets  []MarketSnap  `json:"markets"`
}

type AccountSnap struct {
	AccountID         string            `json:"account_id"`
	Collateral        decimal.Decimal   `json:"collateral"`
	Positions         []PositionSnap    `json:"positions"`
	LastFunding       []FundingMarkSnap `json:"last_funding"`
	BankruptcyDeficit decimal.Decimal   `json:"bankruptcy_deficit"`
}

type PositionSnap struct {
	MarketID  string          `json:"market_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
}

type FundingMarkSnap struct {
	MarketID string          `json:"market_id"`
	Index    decimal.Decimal `json:"index"`
}

type MarketSnap struct {
	MarketID               string          `json:"market_id"`
	MarkPrice              decimal.Decimal `json:"mark_price"`
	IMFraction             decimal.Decimal `json:"im_fraction"`
	MMFraction             decimal.Decimal `json:"mm_fraction"`
	CumulativeFundingIndex decimal.Decimal `json:"cumulative_funding_index"`
}

// Capture deep-copies state into canonical sorted form.
func Capture(s *state.State) *Snapshot {
	snap := &Snapshot{
		Sequence: s.NextSequence,
		Accounts: make([]AccountSnap, 0, len(s.Accounts)),
		Markets:  make([]MarketSnap, 0, len(s.Markets)),
	}

	for _, aid := range s.SortedAccountIDs() {
		a := s.Accounts[aid]
		as := AccountSnap{
			AccountID:         string(aid),
			Collateral:        a.Collateral,
			Positions:         make([]PositionSnap, 0, len(a.Positions)),
			LastFunding:       make([]FundingMarkSnap, 0, len(a.LastFunding)),
			BankruptcyDeficit: a.BankruptcyDeficit,
		}
		for _, mid := range a.SortedPositionMarkets() {
			p := a.Positions[mid]
			as.Positions = append(as.Positions, PositionSnap{
				MarketID:  string(mid),
				Quantity:  p.Quantity,
				CostBasis: p.CostBasis,
			})
			as.LastFunding = append(as.LastFunding, FundingMarkSnap{
				MarketID: string(mid),
				Index:    a.LastFunding[mid],
			})
		}
		snap.Accounts = append(snap.Accounts, as)
	}

	for _, mid := range s.SortedMarketIDs() {
		m := s.Markets[mid]
		snap.Markets = append(snap.Markets, MarketSnap{
			MarketID:               string(mid),
			MarkPrice:              m.MarkPrice,
			IMFraction:             m.IMFraction,
			MMFraction:             m.MMFraction,
			CumulativeFundingIndex: m.CumulativeFundingIndex,
		})
	}

	return snap
}

// CanonicalJSON serializes the snapshot deterministically: struct field
// order is fixed, slices are pre-sorted, decimals marshal as canonical
// strings.
func (s *Snapshot) CanonicalJSON() []byte {
	data, err := json.Marshal(s)
	if err != nil {
		// Snapshot contains only marshalable values; this cannot fail.
		panic(err)
	}
	return data
}

// Equal compares two snapshots byte-wise on their canonical form.
func Equal(a, b *Snapshot) bool {
	return bytes.Equal(a.CanonicalJSON(), b.CanonicalJSON())
}
