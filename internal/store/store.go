// Package store implements the per-bus append-only log: the only shared
// mutable resource in the system. Every other component holds a private read
// cursor over it.
package store

import (
	"context"

	"github.com/ppiankov/agentbus/internal/bus"
)

// Store is one append-only log per bus id. Operating on an unknown bus id
// behaves as an implicitly created empty log, never an error.
//
// Append serializes position assignment per bus id; positions are strictly
// increasing from 0 with no duplicates or gaps, and entries are never
// deleted, mutated, or reordered.
//
// Read returns up to max entries (max <= 0 means no limit) at positions >=
// start, restricted to the given kinds when any are supplied. The returned
// complete flag is computed against the unfiltered tail of the log:
// filtering never hides the true completion state. Kinds outside the
// payload union match nothing.
type Store interface {
	Append(ctx context.Context, busID string, p bus.Payload) (bus.Position, error)
	Read(ctx context.Context, busID string, start bus.Position, max int, kinds []bus.Kind) ([]bus.LogEntry, bool, error)
	Close() error
}

// window applies the filter and max cap to entries already positioned at or
// after the requested start, in append order. complete is false only when a
// matching entry had to be left behind by the max cap; scanning past
// trailing non-matching entries still counts as reaching the tail.
func window(entries []bus.LogEntry, max int, kinds []bus.Kind) ([]bus.LogEntry, bool) {
	var match map[bus.Kind]bool
	if len(kinds) > 0 {
		match = make(map[bus.Kind]bool, len(kinds))
		for _, k := range kinds {
			match[k] = true
		}
	}

	out := []bus.LogEntry{}
	for _, e := range entries {
		if match != nil && !match[e.Payload.Kind()] {
			continue
		}
		if max > 0 && len(out) == max {
			return out, false
		}
		out = append(out, e)
	}
	return out, true
}
