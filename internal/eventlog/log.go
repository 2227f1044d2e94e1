// Package eventlog is the append-only event log and its canonical NDJSON
// wire codec: one event per line, decimals as canonical strings, fixed
// field order.
package eventlog

import "crossmargin/internal/event"

// Log is the in-memory append-only log. Entries are immutable once
// appended; All returns the backing slice and callers must not mutate it.
type Log struct {
	envelopes []event.Envelope
}

func New() *Log {
	return &Log{}
}

func (l *Log) Append(env event.Envelope) {
	l.envelopes = append(l.envelopes, env)
}

func (l *Log) Len() int {
	return len(l.envelopes)
}

func (l *Log) All() []event.Envelope {
	return l.envelopes
}
