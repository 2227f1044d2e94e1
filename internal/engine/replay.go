package engine

import (
	"fmt"
	"io"

	"crossmargin/internal/event"
	"crossmargin/internal/eventlog"
	"crossmargin/internal/observability"
	"crossmargin/internal/snapshot"
	"crossmargin/internal/state"

	"github.com/rs/zerolog"
)

// Replay rebuilds state from an event log, starting empty, applying each
// event in sequence order with no liquidation scanning — emitted
// LiquidationFills are already in the log. It captures a snapshot after
// every event and recomputes the hash chain; when the log records hashes,
// any divergence is an ErrReplayMismatch naming the first bad sequence.
func Replay(envs []event.Envelope) (*snapshot.Snapshot, []*snapshot.Snapshot, error) {
	st := state.New()
	hasher := NewStateHasher()
	snaps := make([]*snapshot.Snapshot, 0, len(envs))

	for _, env := range envs {
		if err := Apply(st, env); err != nil {
			return nil, snaps, fmt.Errorf("replay sequence %d: %w", env.Sequence, err)
		}

		snap := snapshot.Capture(st)
		snaps = append(snaps, snap)

		prev := hasher.Tip()
		hash := hasher.Advance(env.Sequence, env.Payload.Kind(), snap)
		if env.HasHash {
			if prev != env.PrevHash {
				return nil, snaps, fmt.Errorf("%w: prev hash diverged at sequence %d", ErrReplayMismatch, env.Sequence)
			}
			if hash != env.StateHash {
				return nil, snaps, fmt.Errorf("%w: state hash diverged at sequence %d", ErrReplayMismatch, env.Sequence)
			}
		}
	}

	final := snapshot.Capture(st)
	return final, snaps, nil
}

// ReplayReader replays a canonical NDJSON log stream.
func ReplayReader(r io.Reader) (*snapshot.Snapshot, []*snapshot.Snapshot, error) {
	envs, err := eventlog.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return Replay(envs)
}

// Rerun reconstructs the external intents recorded in a log and feeds
// them through a fresh live engine. Rejection records replay as their
// original attempts; engine-emitted LiquidationFills are skipped because
// the live scans re-emit them. A deterministic engine reproduces the
// input log exactly.
func Rerun(envs []event.Envelope, metrics *observability.Metrics, logger zerolog.Logger) (*Engine, error) {
	eng := New(nil, metrics, logger)

	for _, env := range envs {
		var intent event.Event
		switch p := env.Payload.(type) {
		case *event.LiquidationFill:
			continue
		case *event.TradeRejected:
			intent = &event.TradeFill{Account: p.Account, Market: p.Market, Quantity: p.Quantity, Price: p.Price}
		case *event.WithdrawalRejected:
			intent = &event.Withdraw{Account: p.Account, Amount: p.Amount}
		default:
			intent = env.Payload
		}
		if _, err := eng.Ingest(intent); err != nil {
			return nil, fmt.Errorf("rerun sequence %d: %w", env.Sequence, err)
		}
	}
	return eng, nil
}

// VerifyDeterminism replays a log and reruns it live, then compares the
// two snapshot paths and final states. Any difference is an
// ErrReplayMismatch.
func VerifyDeterminism(envs []event.Envelope) error {
	finalReplay, replaySnaps, err := Replay(envs)
	if err != nil {
		return err
	}

	eng, err := Rerun(envs, nil, zerolog.Nop())
	if err != nil {
		return err
	}

	liveEnvs := eng.Log().All()
	if len(liveEnvs) != len(envs) {
		return fmt.Errorf("%w: live rerun produced %d events, log has %d", ErrReplayMismatch, len(liveEnvs), len(envs))
	}
	liveSnaps := eng.Snapshots()
	for i := range replaySnaps {
		if !snapshot.Equal(replaySnaps[i], liveSnaps[i]) {
			return fmt.Errorf("%w: snapshot diverged at sequence %d", ErrReplayMismatch, envs[i].Sequence)
		}
	}

	if len(liveSnaps) == 0 {
		return nil
	}
	if !snapshot.Equal(finalReplay, liveSnaps[len(liveSnaps)-1]) {
		return fmt.Errorf("%w: final states differ", ErrReplayMismatch)
	}
	return nil
}
