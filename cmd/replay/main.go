// Command replay reads a canonical NDJSON event log, replays it from
// empty state, and verifies determinism: sequence continuity, the
// recorded state-hash chain, and — with -verify-live — that rerunning the
// external intents through a fresh live engine reproduces the identical
// snapshot path. Exits nonzero on any mismatch.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"crossmargin/internal/engine"
	"crossmargin/internal/eventlog"
	"crossmargin/internal/observability"
)

func main() {
	logPath := flag.String("log", "crossmargin.events.ndjson", "path to the canonical NDJSON event log")
	verifyLive := flag.Bool("verify-live", true, "rerun external intents through a live engine and compare snapshot paths")
	printFinal := flag.Bool("print-final", false, "print the final state snapshot as canonical JSON")
	flag.Parse()

	logger := observability.NewLogger("replay")

	f, err := os.Open(*logPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open event log")
	}
	defer f.Close()

	envs, err := eventlog.ReadAll(f)
	if err != nil {
		logger.Fatal().Err(err).Msg("event log unreadable")
	}

	final, snaps, err := engine.Replay(envs)
	if err != nil {
		logger.Error().Err(err).Msg("replay failed")
		os.Exit(1)
	}
	logger.Info().
		Int("events", len(envs)).
		Int("snapshots", len(snaps)).
		Msg("replay complete")

	if *verifyLive {
		if err := engine.VerifyDeterminism(envs); err != nil {
			logger.Error().Err(err).Msg("determinism check failed")
			os.Exit(1)
		}
		logger.Info().Msg("live rerun matches replay")
	}

	hasher := engine.NewStateHasher()
	for i, snap := range snaps {
		hasher.Advance(envs[i].Sequence, envs[i].Payload.Kind(), snap)
	}
	tip := hasher.Tip()
	logger.Info().Str("state_hash", hex.EncodeToString(tip[:])).Msg("log head verified")

	if *printFinal {
		fmt.Println(string(final.CanonicalJSON()))
	}
}
