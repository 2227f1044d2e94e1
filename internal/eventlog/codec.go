package eventlog

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"crossmargin/internal/event"
	"crossmargin/internal/num"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownEventKind = errors.New("unknown event kind")
)

// envelopeJSON is the one-line wire form. Decimal fields travel as
// canonical strings; absent fields are omitted so each kind carries exactly
// its own payload. state_hash / prev_hash are written by the live engine
// and optional on read.
type envelopeJSON struct {
	Sequence  uint64 `json:"sequence"`
	Kind      string `json:"kind"`
	AccountID string `json:"account_id,omitempty"`
	MarketID  string `json:"market_id,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Price     string `json:"price,omitempty"`
	NewIndex  string `json:"new_cumulative_index,omitempty"`
	IM        string `json:"im_fraction,omitempty"`
	MM        string `json:"mm_fraction,omitempty"`
	InitMark  string `json:"initial_mark_price,omitempty"`
	Reason    string `json:"reason,omitempty"`
	StateHash string `json:"state_hash,omitempty"`
	PrevHash  string `json:"prev_hash,omitempty"`
}

// EncodeEnvelope renders one envelope as a canonical JSON line (no
// trailing newline).
func EncodeEnvelope(env event.Envelope) ([]byte, error) {
	j := envelopeJSON{
		Sequence: env.Sequence,
		Kind:     env.Payload.Kind().String(),
	}

	switch p := env.Payload.(type) {
	case *event.MarketInit:
		j.MarketID = p.Market
		j.IM = p.IMFraction.String()
		j.MM = p.MMFraction.String()
		j.InitMark = p.InitialMarkPrice.String()
	case *event.Deposit:
		j.AccountID = p.Account
		j.Amount = p.Amount.String()
	case *event.Withdraw:
		j.AccountID = p.Account
		j.Amount = p.Amount.String()
	case *event.TradeFill:
		j.AccountID = p.Account
		j.MarketID = p.Market
		j.Quantity = p.Quantity.String()
		j.Price = p.Price.String()
	case *event.MarkPriceUpdate:
		j.MarketID = p.Market
		j.Price = p.Price.String()
	case *event.FundingUpdate:
		j.MarketID = p.Market
		j.NewIndex = p.NewIndex.String()
	case *event.LiquidationFill:
		j.AccountID = p.Account
		j.MarketID = p.Market
		j.Quantity = p.Quantity.String()
		j.Price = p.Price.String()
	case *event.TradeRejected:
		j.AccountID = p.Account
		j.MarketID = p.Market
		j.Quantity = p.Quantity.String()
		j.Price = p.Price.String()
		j.Reason = p.Reason
	case *event.WithdrawalRejected:
		j.AccountID = p.Account
		j.Amount = p.Amount.String()
		j.Reason = p.Reason
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEventKind, env.Payload)
	}

	if env.HasHash {
		j.StateHash = hex.EncodeToString(env.StateHash[:])
		j.PrevHash = hex.EncodeToString(env.PrevHash[:])
	}

	return json.Marshal(j)
}

// DecodeEnvelope parses one log line. Unknown kinds, missing required
// decimal fields, and non-canonical decimals are malformed input. Id fields
// are not checked here; a missing account_id or market_id decodes as "".
func DecodeEnvelope(line []byte) (event.Envelope, error) {
	var j envelopeJSON
	if err := json.Unmarshal(line, &j); err != nil {
		return event.Envelope{}, fmt.Errorf("parse event line: %w", err)
	}

	env := event.Envelope{Sequence: j.Sequence}

	var err error
	switch event.ParseKind(j.Kind) {
	case event.KindMarketInit:
		p := &event.MarketInit{Market: j.MarketID}
		if p.IMFraction, err = num.Parse(j.IM); err != nil {
			return env, fmt.Errorf("MarketInit im_fraction: %w", err)
		}
		if p.MMFraction, err = num.Parse(j.MM); err != nil {
			return env, fmt.Errorf("MarketInit mm_fraction: %w", err)
		}
		p.InitialMarkPrice, err = parseOptional(j.InitMark)
		if err != nil {
			return env, fmt.Errorf("MarketInit initial_mark_price: %w", err)
		}
		env.Payload = p
	case event.KindDeposit:
		p := &event.Deposit{Account: j.AccountID}
		if p.Amount, err = num.Parse(j.Amount); err != nil {
			return env, fmt.Errorf("Deposit amount: %w", err)
		}
		env.Payload = p
	case event.KindWithdraw:
		p := &event.Withdraw{Account: j.AccountID}
		if p.Amount, err = num.Parse(j.Amount); err != nil {
			return env, fmt.Errorf("Withdraw amount: %w", err)
		}
		env.Payload = p
	case event.KindTradeFill:
		p := &event.TradeFill{Account: j.AccountID, Market: j.MarketID}
		if p.Quantity, err = num.Parse(j.Quantity); err != nil {
			return env, fmt.Errorf("TradeFill quantity: %w", err)
		}
		if p.Price, err = num.Parse(j.Price); err != nil {
			return env, fmt.Errorf("TradeFill price: %w", err)
		}
		env.Payload = p
	case event.KindMarkPriceUpdate:
		p := &event.MarkPriceUpdate{Market: j.MarketID}
		if p.Price, err = num.Parse(j.Price); err != nil {
			return env, fmt.Errorf("MarkPriceUpdate price: %w", err)
		}
		env.Payload = p
	case event.KindFundingUpdate:
		p := &event.FundingUpdate{Market: j.MarketID}
		if p.NewIndex, err = num.Parse(j.NewIndex); err != nil {
			return env, fmt.Errorf("FundingUpdate new_cumulative_index: %w", err)
		}
		env.Payload = p
	case event.KindLiquidationFill:
		p := &event.LiquidationFill{Account: j.AccountID, Market: j.MarketID}
		if p.Quantity, err = num.Parse(j.Quantity); err != nil {
			return env, fmt.Errorf("LiquidationFill quantity: %w", err)
		}
		if p.Price, err = num.Parse(j.Price); err != nil {
			return env, fmt.Errorf("LiquidationFill price: %w", err)
		}
		env.Payload = p
	case event.KindTradeRejected:
		p := &event.TradeRejected{Account: j.AccountID, Market: j.MarketID, Reason: j.Reason}
		if p.Quantity, err = num.Parse(j.Quantity); err != nil {
			return env, fmt.Errorf("TradeRejected quantity: %w", err)
		}
		if p.Price, err = num.Parse(j.Price); err != nil {
			return env, fmt.Errorf("TradeRejected price: %w", err)
		}
		env.Payload = p
	case event.KindWithdrawalRejected:
		p := &event.WithdrawalRejected{Account: j.AccountID, Reason: j.Reason}
		if p.Amount, err = num.Parse(j.Amount); err != nil {
			return env, fmt.Errorf("WithdrawalRejected amount: %w", err)
		}
		env.Payload = p
	default:
		return env, fmt.Errorf("%w: %q", ErrUnknownEventKind, j.Kind)
	}

	if j.StateHash != "" {
		if err := decodeHash(j.StateHash, &env.StateHash); err != nil {
			return env, fmt.Errorf("state_hash: %w", err)
		}
		if err := decodeHash(j.PrevHash, &env.PrevHash); err != nil {
			return env, fmt.Errorf("prev_hash: %w", err)
		}
		env.HasHash = true
	}

	return env, nil
}

func parseOptional(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return num.Parse(s)
}

func decodeHash(s string, out *[32]byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("hash length %d, want 32", len(b))
	}
	copy(out[:], b)
	return nil
}

// Writer streams envelopes as NDJSON.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(env event.Envelope) error {
	line, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	_, err = w.w.Write([]byte{'\n'})
	return err
}

// WriteAll serializes a whole log.
func WriteAll(w io.Writer, envs []event.Envelope) error {
	lw := NewWriter(w)
	for _, env := range envs {
		if err := lw.Write(env); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll decodes an NDJSON stream into envelopes. Blank lines are
// skipped; any malformed line aborts the read.
func ReadAll(r io.Reader) ([]event.Envelope, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var envs []event.Envelope
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := DecodeEnvelope(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		envs = append(envs, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return envs, nil
}
