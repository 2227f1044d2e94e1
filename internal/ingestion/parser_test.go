package ingestion_test

import (
	"testing"

	"crossmargin/internal/event"
	"crossmargin/internal/ingestion"
	"crossmargin/internal/num"

	"github.com/google/uuid"
)

func TestParseRaw_TradeFill(t *testing.T) {
	data := []byte(`{"event_id":"550e8400-e29b-41d4-a716-446655440000","account_id":"alice","market_id":"BTC-PERP","quantity":"-2.5","price":"50000"}`)

	ev, err := ingestion.ParseRaw("TradeFill", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fill, ok := ev.(*event.TradeFill)
	if !ok {
		t.Fatalf("parsed kind = %s", ev.Kind())
	}
	if fill.Account != "alice" || fill.Market != "BTC-PERP" {
		t.Errorf("ids = (%s, %s)", fill.Account, fill.Market)
	}
	if !fill.Quantity.Equal(num.MustParse("-2.5")) || !fill.Price.Equal(num.MustParse("50000")) {
		t.Errorf("values = (%s, %s)", fill.Quantity, fill.Price)
	}
}

func TestParseRaw_MarketInit(t *testing.T) {
	data := []byte(`{"market_id":"ETH-PERP","im_fraction":"0.10","mm_fraction":"0.05","initial_mark_price":"3000"}`)

	ev, err := ingestion.ParseRaw("MarketInit", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	init := ev.(*event.MarketInit)
	if !init.IMFraction.Equal(num.MustParse("0.1")) || !init.MMFraction.Equal(num.MustParse("0.05")) {
		t.Errorf("fractions = (%s, %s)", init.IMFraction, init.MMFraction)
	}
}

func TestParseRaw_MarketInitOptionalMark(t *testing.T) {
	data := []byte(`{"market_id":"ETH-PERP","im_fraction":"0.10","mm_fraction":"0.05"}`)
	ev, err := ingestion.ParseRaw("MarketInit", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ev.(*event.MarketInit).InitialMarkPrice.IsZero() {
		t.Error("missing initial mark should default to zero")
	}
}

func TestParseRaw_FundingUpdate(t *testing.T) {
	data := []byte(`{"market_id":"ETH-PERP","new_cumulative_index":"-1.5"}`)
	ev, err := ingestion.ParseRaw("FundingUpdate", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ev.(*event.FundingUpdate).NewIndex.Equal(num.MustParse("-1.5")) {
		t.Errorf("index = %s", ev.(*event.FundingUpdate).NewIndex)
	}
}

func TestParseRaw_Errors(t *testing.T) {
	cases := []struct {
		kind string
		data string
	}{
		{"TradeFill", `{"account_id":"a","market_id":"m","quantity":"1e3","price":"1"}`},
		{"Deposit", `{"account_id":"a","amount":"abc"}`},
		{"Deposit", `not json`},
		{"OrderPlaced", `{}`},
		{"LiquidationFill", `{}`}, // engine-emitted, not an intake kind
	}
	for _, c := range cases {
		if _, err := ingestion.ParseRaw(c.kind, []byte(c.data)); err == nil {
			t.Errorf("ParseRaw(%s, %s): expected error", c.kind, c.data)
		}
	}
}

func TestParseEventID(t *testing.T) {
	id, err := ingestion.ParseEventID([]byte(`{"event_id":"550e8400-e29b-41d4-a716-446655440000","amount":"1"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != uuid.MustParse("550e8400-e29b-41d4-a716-446655440000") {
		t.Errorf("id = %s", id)
	}

	if _, err := ingestion.ParseEventID([]byte(`{"event_id":"nope"}`)); err == nil {
		t.Error("invalid uuid parsed without error")
	}
}

func TestDeduper(t *testing.T) {
	d := ingestion.NewDeduper(2)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	if d.Observe(a) {
		t.Error("first observation reported duplicate")
	}
	if !d.Observe(a) {
		t.Error("second observation not reported duplicate")
	}
	d.Observe(b)
	d.Observe(c) // evicts a
	if d.Observe(a) {
		t.Error("evicted id still reported duplicate")
	}
}
