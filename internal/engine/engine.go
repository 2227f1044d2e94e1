// Package engine ties the pure pieces together: the live sequencer that
// validates, appends, applies, and liquidation-scans one event at a time,
// and the replay harness that rebuilds state from a log with no scanning.
package engine

import (
	"fmt"
	"io"
	"sync"

	"crossmargin/internal/event"
	"crossmargin/internal/eventlog"
	"crossmargin/internal/observability"
	"crossmargin/internal/risk"
	"crossmargin/internal/snapshot"
	"crossmargin/internal/state"

	"github.com/rs/zerolog"
)

// Output is one committed envelope plus its encoded log line, handed to
// the persistence worker and outbound publisher.
type Output struct {
	Envelope event.Envelope
	Line     []byte
}

// Result reports the outcome of one ingested event.
type Result struct {
	Accepted bool
	Reason   string // rejection reason when !Accepted
	Sequence uint64 // sequence of the appended event (or rejection record)
	// Liquidations counts LiquidationFill events emitted by the
	// post-apply scan.
	Liquidations int
}

// Engine is the single sequencer. All state mutation and liquidation
// scanning happen inside its mutex; ingestion edges may be concurrent but
// funnel through here one event at a time.
type Engine struct {
	mu sync.Mutex

	st     *state.State
	log    *eventlog.Log
	hasher *StateHasher
	snaps  []*snapshot.Snapshot

	sink    *eventlog.Writer // optional durable NDJSON sink
	outputs chan<- Output    // optional; blocking sends so persistence lag stalls the sequencer

	metrics *observability.Metrics
	logger  zerolog.Logger
}

func New(outputs chan<- Output, metrics *observability.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		st:      state.New(),
		log:     eventlog.New(),
		hasher:  NewStateHasher(),
		outputs: outputs,
		metrics: metrics,
		logger:  logger,
	}
}

// AttachSink directs every committed envelope to w as a canonical NDJSON
// line, synchronously, before the commit returns. The sink is the durable
// log of record.
func (e *Engine) AttachSink(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = eventlog.NewWriter(w)
}

// Ingest validates one external event, appends it (or its rejection
// record) to the log, applies it, and runs the liquidation scan the event
// kind calls for. Malformed input returns an error with state unchanged.
func (e *Engine) Ingest(ev event.Event) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch p := ev.(type) {
	case *event.Deposit:
		if p.Amount.Sign() <= 0 {
			return Result{}, fmt.Errorf("%w: non-positive deposit amount %s", ErrMalformedEvent, p.Amount)
		}
		env, err := e.commit(p)
		if err != nil {
			return Result{}, err
		}
		return Result{Accepted: true, Sequence: env.Sequence}, nil

	case *event.MarketInit:
		if _, exists := e.st.Markets[state.MarketID(p.Market)]; exists {
			return Result{}, fmt.Errorf("%w: duplicate MarketInit for %s", ErrMalformedEvent, p.Market)
		}
		env, err := e.commit(p)
		if err != nil {
			return Result{}, err
		}
		return Result{Accepted: true, Sequence: env.Sequence}, nil

	case *event.Withdraw:
		d := risk.CheckWithdrawal(e.st, state.AccountID(p.Account), p.Amount)
		if !d.Accept {
			env, err := e.commit(&event.WithdrawalRejected{Account: p.Account, Amount: p.Amount, Reason: d.Reason})
			if err != nil {
				return Result{}, err
			}
			e.countRejected(ev.Kind(), d.Reason)
			return Result{Reason: d.Reason, Sequence: env.Sequence}, nil
		}
		env, err := e.commit(p)
		if err != nil {
			return Result{}, err
		}
		return Result{Accepted: true, Sequence: env.Sequence}, nil

	case *event.TradeFill:
		if p.Price.Sign() <= 0 {
			return Result{}, fmt.Errorf("%w: non-positive fill price %s", ErrMalformedEvent, p.Price)
		}
		d := risk.SimulateTrade(e.st, state.AccountID(p.Account), state.MarketID(p.Market), p.Quantity, p.Price)
		if !d.Accept {
			env, err := e.commit(&event.TradeRejected{
				Account:  p.Account,
				Market:   p.Market,
				Quantity: p.Quantity,
				Price:    p.Price,
				Reason:   d.Reason,
			})
			if err != nil {
				return Result{}, err
			}
			e.countRejected(ev.Kind(), d.Reason)
			return Result{Reason: d.Reason, Sequence: env.Sequence}, nil
		}
		env, err := e.commit(p)
		if err != nil {
			return Result{}, err
		}
		liqs, err := e.liquidateAccount(state.AccountID(p.Account))
		if err != nil {
			return Result{}, err
		}
		return Result{Accepted: true, Sequence: env.Sequence, Liquidations: liqs}, nil

	case *event.MarkPriceUpdate:
		mkt, ok := e.st.Markets[state.MarketID(p.Market)]
		if !ok {
			e.countRejected(ev.Kind(), risk.ReasonUnknownMarket)
			return Result{Reason: risk.ReasonUnknownMarket}, nil
		}
		if p.Price.Sign() < 0 {
			return Result{}, fmt.Errorf("%w: negative mark price %s", ErrMalformedEvent, p.Price)
		}
		moved := !mkt.MarkPrice.Equal(p.Price)
		env, err := e.commit(p)
		if err != nil {
			return Result{}, err
		}
		liqs := 0
		if moved {
			if liqs, err = e.scanMarket(state.MarketID(p.Market)); err != nil {
				return Result{}, err
			}
		}
		return Result{Accepted: true, Sequence: env.Sequence, Liquidations: liqs}, nil

	case *event.FundingUpdate:
		if _, ok := e.st.Markets[state.MarketID(p.Market)]; !ok {
			e.countRejected(ev.Kind(), risk.ReasonUnknownMarket)
			return Result{Reason: risk.ReasonUnknownMarket}, nil
		}
		env, err := e.commit(p)
		if err != nil {
			return Result{}, err
		}
		liqs, err := e.scanMarket(state.MarketID(p.Market))
		if err != nil {
			return Result{}, err
		}
		return Result{Accepted: true, Sequence: env.Sequence, Liquidations: liqs}, nil

	default:
		// LiquidationFill, TradeRejected, and WithdrawalRejected are
		// engine-emitted; they enter the log only through commit.
		return Result{}, fmt.Errorf("%w: kind %s is not ingestible", ErrMalformedEvent, ev.Kind())
	}
}

// commit assigns the next sequence, applies the event, extends the hash
// chain, and fans the envelope out to the log, sink, and output channel.
func (e *Engine) commit(payload event.Event) (event.Envelope, error) {
	env := event.Envelope{Sequence: e.st.NextSequence, Payload: payload}

	if err := Apply(e.st, env); err != nil {
		return event.Envelope{}, err
	}

	snap := snapshot.Capture(e.st)
	env.PrevHash = e.hasher.Tip()
	env.StateHash = e.hasher.Advance(env.Sequence, payload.Kind(), snap)
	env.HasHash = true

	e.log.Append(env)
	e.snaps = append(e.snaps, snap)

	line, err := eventlog.EncodeEnvelope(env)
	if err != nil {
		return event.Envelope{}, err
	}
	if e.sink != nil {
		if err := e.sink.Write(env); err != nil {
			return event.Envelope{}, fmt.Errorf("event log sink: %w", err)
		}
	}
	if e.outputs != nil {
		// Blocking send: if persistence falls behind, the sequencer
		// stalls rather than lose an event.
		e.outputs <- Output{Envelope: env, Line: line}
	}

	if e.metrics != nil {
		e.metrics.EventsApplied.WithLabelValues(payload.Kind().String()).Inc()
		e.metrics.EngineSequence.Set(float64(e.st.NextSequence))
	}
	e.logger.Debug().
		Uint64("sequence", env.Sequence).
		Str("kind", payload.Kind().String()).
		Msg("event committed")

	return env, nil
}

func (e *Engine) countRejected(kind event.Kind, reason string) {
	if e.metrics != nil {
		e.metrics.EventsRejected.WithLabelValues(kind.String(), reason).Inc()
	}
}

// Bootstrap loads an existing log into a fresh engine: applies each
// envelope, rebuilds the hash chain, and verifies recorded hashes. No
// scanning and no sink or output writes — the log is already durable.
func (e *Engine) Bootstrap(envs []event.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, env := range envs {
		if err := Apply(e.st, env); err != nil {
			return fmt.Errorf("bootstrap sequence %d: %w", env.Sequence, err)
		}
		snap := snapshot.Capture(e.st)
		prev := e.hasher.Tip()
		hash := e.hasher.Advance(env.Sequence, env.Payload.Kind(), snap)
		if env.HasHash {
			if prev != env.PrevHash || hash != env.StateHash {
				return fmt.Errorf("%w: hash chain diverged at sequence %d", ErrReplayMismatch, env.Sequence)
			}
		}
		env.PrevHash, env.StateHash, env.HasHash = prev, hash, true
		e.log.Append(env)
		e.snaps = append(e.snaps, snap)
	}
	return nil
}

// CaptureSnapshot captures the current state under the sequencer lock.
func (e *Engine) CaptureSnapshot() *snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot.Capture(e.st)
}

// Do runs fn inside the serial region with read access to state. Used by
// the query service; fn must not retain or mutate the state.
func (e *Engine) Do(fn func(*state.State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.st)
}

// Log returns the in-memory event log.
func (e *Engine) Log() *eventlog.Log {
	return e.log
}

// Snapshots returns the per-event snapshot path captured at each commit.
func (e *Engine) Snapshots() []*snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snaps
}

// StateHash returns the current hash-chain tip.
func (e *Engine) StateHash() [32]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasher.Tip()
}

// Sequence returns the next sequence to assign.
func (e *Engine) Sequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.NextSequence
}
