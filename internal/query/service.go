// Package query is the read side: it computes derived views (margin
// summaries, market state) under the engine's serial region and returns
// them with an as-of sequence for freshness semantics.
package query

import (
	"errors"

	"crossmargin/internal/engine"
	"crossmargin/internal/margin"
	"crossmargin/internal/state"
)

var ErrNotFound = errors.New("not found")

type Service struct {
	eng *engine.Engine
}

func NewService(eng *engine.Engine) *Service {
	return &Service{eng: eng}
}

// AccountMarginResponse is the derived margin view of one account.
type AccountMarginResponse struct {
	AccountID         string             `json:"account_id"`
	Collateral        string             `json:"collateral"`
	Equity            string             `json:"equity"`
	InitialMargin     string             `json:"initial_margin"`
	MaintenanceMargin string             `json:"maintenance_margin"`
	Liquidatable      bool               `json:"liquidatable"`
	BankruptcyDeficit string             `json:"bankruptcy_deficit"`
	Positions         []PositionResponse `json:"positions"`
	AsOfSequence      uint64             `json:"as_of_sequence"`
}

type PositionResponse struct {
	MarketID      string `json:"market_id"`
	Quantity      string `json:"quantity"`
	CostBasis     string `json:"cost_basis"`
	UnrealizedPnL string `json:"unrealized_pnl"`
	Notional      string `json:"notional"`
}

// AccountMargin returns the margin summary for one account.
func (s *Service) AccountMargin(accountID string) (*AccountMarginResponse, error) {
	var (
		resp *AccountMarginResponse
		err  error
	)
	s.eng.Do(func(st *state.State) {
		acct, ok := st.Accounts[state.AccountID(accountID)]
		if !ok {
			err = ErrNotFound
			return
		}
		sum := margin.Summarize(acct, st)
		resp = &AccountMarginResponse{
			AccountID:         accountID,
			Collateral:        sum.Collateral.String(),
			Equity:            sum.Equity.String(),
			InitialMargin:     sum.InitialMargin.String(),
			MaintenanceMargin: sum.MaintenanceMargin.String(),
			Liquidatable:      sum.Liquidatable,
			BankruptcyDeficit: sum.BankruptcyDeficit.String(),
			AsOfSequence:      st.NextSequence,
		}
		for _, mid := range acct.SortedPositionMarkets() {
			p := acct.Positions[mid]
			m := st.Markets[mid]
			resp.Positions = append(resp.Positions, PositionResponse{
				MarketID:      string(mid),
				Quantity:      p.Quantity.String(),
				CostBasis:     p.CostBasis.String(),
				UnrealizedPnL: margin.UnrealizedPnL(p, m).String(),
				Notional:      margin.Notional(p, m).String(),
			})
		}
	})
	return resp, err
}

// MarketResponse is the public view of one market.
type MarketResponse struct {
	MarketID               string `json:"market_id"`
	MarkPrice              string `json:"mark_price"`
	IMFraction             string `json:"im_fraction"`
	MMFraction             string `json:"mm_fraction"`
	CumulativeFundingIndex string `json:"cumulative_funding_index"`
}

type MarketsResponse struct {
	Markets      []MarketResponse `json:"markets"`
	AsOfSequence uint64           `json:"as_of_sequence"`
}

// Markets lists all markets in id order.
func (s *Service) Markets() *MarketsResponse {
	resp := &MarketsResponse{}
	s.eng.Do(func(st *state.State) {
		resp.AsOfSequence = st.NextSequence
		for _, mid := range st.SortedMarketIDs() {
			m := st.Markets[mid]
			resp.Markets = append(resp.Markets, MarketResponse{
				MarketID:               string(mid),
				MarkPrice:              m.MarkPrice.String(),
				IMFraction:             m.IMFraction.String(),
				MMFraction:             m.MMFraction.String(),
				CumulativeFundingIndex: m.CumulativeFundingIndex.String(),
			})
		}
	})
	return resp
}

// HeadResponse identifies the log head: next sequence and hash-chain tip.
type HeadResponse struct {
	NextSequence uint64 `json:"next_sequence"`
	StateHash    string `json:"state_hash"`
}
