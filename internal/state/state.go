// Package state holds the engine's mutable world: accounts, markets, and
// the next sequence to assign. Maps are iterated in key-sorted order
// everywhere a sum, scan, or tie-break occurs; the sorted-key helpers here
// are the only sanctioned way to walk them.
package state

import "sort"

// AccountID and MarketID are opaque identifiers, compared and ordered
// lexicographically.
type (
	AccountID string
	MarketID  string
)

// State is the full engine state. The event log is external; replaying it
// from empty state reconstructs an identical State.
type State struct {
	Accounts     map[AccountID]*Account
	Markets      map[MarketID]*Market
	NextSequence uint64
}

func New() *State {
	return &State{
		Accounts: make(map[AccountID]*Account),
		Markets:  make(map[MarketID]*Market),
	}
}

// SortedAccountIDs returns all account ids in lexicographic order.
func (s *State) SortedAccountIDs() []AccountID {
	ids := make([]AccountID, 0, len(s.Accounts))
	for id := range s.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedMarketIDs returns all market ids in lexicographic order.
func (s *State) SortedMarketIDs() []MarketID {
	ids := make([]MarketID, 0, len(s.Markets))
	for id := range s.Markets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns a deep value copy. Decimals are immutable values, so
// copying the structs copies the numbers.
func (s *State) Clone() *State {
	c := &State{
		Accounts:     make(map[AccountID]*Account, len(s.Accounts)),
		Markets:      make(map[MarketID]*Market, len(s.Markets)),
		NextSequence: s.NextSequence,
	}
	for id, a := range s.Accounts {
		c.Accounts[id] = a.Clone()
	}
	for id, m := range s.Markets {
		mc := *m
		c.Markets[id] = &mc
	}
	return c
}
