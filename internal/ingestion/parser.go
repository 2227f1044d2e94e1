package ingestion

import (
	"encoding/json"
	"fmt"

	"crossmargin/internal/event"
	"crossmargin/internal/num"

	"github.com/google/uuid"
)

// ParseRaw converts a raw intake payload (JSON bytes + kind tag) into a
// typed event.Event. The ingestion shell validates and converts raw
// events before handing them to the sequencer; decimals travel as
// canonical strings and are parsed strictly.
func ParseRaw(kind string, data []byte) (event.Event, error) {
	switch event.ParseKind(kind) {
	case event.KindMarketInit:
		return parseMarketInit(data)
	case event.KindDeposit:
		return parseDeposit(data)
	case event.KindWithdraw:
		return parseWithdraw(data)
	case event.KindTradeFill:
		return parseTradeFill(data)
	case event.KindMarkPriceUpdate:
		return parseMarkPriceUpdate(data)
	case event.KindFundingUpdate:
		return parseFundingUpdate(data)
	default:
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}
}

// ParseEventID extracts and validates the upstream idempotency key from a
// raw payload. Producers stamp every message with a UUID event_id; a
// duplicate delivery of the same id is dropped at the edge.
func ParseEventID(data []byte) (uuid.UUID, error) {
	var j struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return uuid.Nil, fmt.Errorf("parse event_id: %w", err)
	}
	id, err := uuid.Parse(j.EventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse event_id: %w", err)
	}
	return id, nil
}

// --- JSON wire formats ---
// Field names use snake_case to match upstream producers.

type marketInitJSON struct {
	MarketID         string `json:"market_id"`
	IMFraction       string `json:"im_fraction"`
	MMFraction       string `json:"mm_fraction"`
	InitialMarkPrice string `json:"initial_mark_price"`
}

func parseMarketInit(data []byte) (*event.MarketInit, error) {
	var j marketInitJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse MarketInit: %w", err)
	}
	im, err := num.Parse(j.IMFraction)
	if err != nil {
		return nil, fmt.Errorf("parse im_fraction: %w", err)
	}
	mm, err := num.Parse(j.MMFraction)
	if err != nil {
		return nil, fmt.Errorf("parse mm_fraction: %w", err)
	}
	p := &event.MarketInit{Market: j.MarketID, IMFraction: im, MMFraction: mm}
	if j.InitialMarkPrice != "" {
		if p.InitialMarkPrice, err = num.Parse(j.InitialMarkPrice); err != nil {
			return nil, fmt.Errorf("parse initial_mark_price: %w", err)
		}
	}
	return p, nil
}

type transferJSON struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

func parseDeposit(data []byte) (*event.Deposit, error) {
	var j transferJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Deposit: %w", err)
	}
	amount, err := num.Parse(j.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return &event.Deposit{Account: j.AccountID, Amount: amount}, nil
}

func parseWithdraw(data []byte) (*event.Withdraw, error) {
	var j transferJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Withdraw: %w", err)
	}
	amount, err := num.Parse(j.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return &event.Withdraw{Account: j.AccountID, Amount: amount}, nil
}

type tradeFillJSON struct {
	AccountID string `json:"account_id"`
	MarketID  string `json:"market_id"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
}

func parseTradeFill(data []byte) (*event.TradeFill, error) {
	var j tradeFillJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TradeFill: %w", err)
	}
	qty, err := num.Parse(j.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	price, err := num.Parse(j.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &event.TradeFill{Account: j.AccountID, Market: j.MarketID, Quantity: qty, Price: price}, nil
}

type markPriceJSON struct {
	MarketID string `json:"market_id"`
	Price    string `json:"price"`
}

func parseMarkPriceUpdate(data []byte) (*event.MarkPriceUpdate, error) {
	var j markPriceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse MarkPriceUpdate: %w", err)
	}
	price, err := num.Parse(j.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &event.MarkPriceUpdate{Market: j.MarketID, Price: price}, nil
}

type fundingJSON struct {
	MarketID string `json:"market_id"`
	NewIndex string `json:"new_cumulative_index"`
}

func parseFundingUpdate(data []byte) (*event.FundingUpdate, error) {
	var j fundingJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FundingUpdate: %w", err)
	}
	idx, err := num.Parse(j.NewIndex)
	if err != nil {
		return nil, fmt.Errorf("parse new_cumulative_index: %w", err)
	}
	return &event.FundingUpdate{Market: j.MarketID, NewIndex: idx}, nil
}
