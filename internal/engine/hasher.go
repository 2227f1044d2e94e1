package engine

import (
	"crypto/sha256"
	"encoding/binary"

	"crossmargin/internal/event"
	"crossmargin/internal/snapshot"
)

// StateHasher maintains the log's integrity chain. Each link binds the
// committed event's sequence, its kind tag, and a digest of the canonical
// post-apply snapshot:
//
//	tip[n] = SHA-256(tip[n-1] || record[n])
//	record = sequence_be64 || len(kind) || kind || SHA-256(snapshot)
//
// Binding the kind means two logs that pass through equal states via
// different events still hash apart. The chain is a pure function of the
// event log, so replay recomputes it and any divergence pinpoints the
// first mismatching event.
type StateHasher struct {
	tip [32]byte
}

func NewStateHasher() *StateHasher {
	return &StateHasher{tip: sha256.Sum256([]byte("crossmargin/event-log/v1"))}
}

// Advance folds one committed event into the chain and returns the new tip.
func (h *StateHasher) Advance(sequence uint64, kind event.Kind, snap *snapshot.Snapshot) [32]byte {
	stateDigest := sha256.Sum256(snap.CanonicalJSON())
	tag := kind.String()

	record := make([]byte, 0, 8+1+len(tag)+len(stateDigest))
	record = binary.BigEndian.AppendUint64(record, sequence)
	record = append(record, byte(len(tag)))
	record = append(record, tag...)
	record = append(record, stateDigest[:]...)

	link := sha256.New()
	link.Write(h.tip[:])
	link.Write(record)
	copy(h.tip[:], link.Sum(nil))
	return h.tip
}

// Tip returns the current chain tip.
func (h *StateHasher) Tip() [32]byte {
	return h.tip
}
