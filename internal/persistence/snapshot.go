package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"crossmargin/internal/snapshot"

	"github.com/google/uuid"
)

// SnapshotStore persists periodic state snapshots for warm restarts and
// audits. A snapshot row carries the canonical JSON form plus the hash
// chain tip at its sequence.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save persists one snapshot, keyed by its sequence.
func (ss *SnapshotStore) Save(ctx context.Context, snap *snapshot.Snapshot, stateHash [32]byte) error {
	data := snap.CanonicalJSON()

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $5
	`, uuid.New(), snap.Sequence, data, stateHash[:], len(data), time.Now().UTC())

	return err
}

// LoadLatest loads the most recent snapshot, or nil on a cold start.
func (ss *SnapshotStore) LoadLatest(ctx context.Context) (*snapshot.Snapshot, error) {
	row := ss.db.QueryRowContext(ctx, `
		SELECT data FROM event_log.snapshots
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
