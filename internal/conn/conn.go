// Package conn abstracts "a handle to a bus": the same two operations
// whether the log lives in-process or behind a gRPC server. The decider,
// the SDK, and the test harness all speak Conn, so none of them can tell a
// local call from a network round-trip.
package conn

import (
	"context"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/store"
)

// Conn is a handle to a bus.
type Conn interface {
	// Propose appends payload as the next entry for busID and returns the
	// assigned position.
	Propose(ctx context.Context, busID string, p bus.Payload) (bus.Position, error)
	// Poll returns up to max entries at positions >= start, optionally
	// restricted to kinds. complete reflects the unfiltered log tail.
	Poll(ctx context.Context, busID string, start bus.Position, max int, kinds []bus.Kind) ([]bus.LogEntry, bool, error)
	Close() error
}

// Local is a Conn over an in-process store.
type Local struct {
	st store.Store
}

// NewLocal wraps a store. The store's lifecycle stays with its owner;
// closing the Local is a no-op.
func NewLocal(st store.Store) *Local {
	return &Local{st: st}
}

// Propose implements Conn.
func (l *Local) Propose(ctx context.Context, busID string, p bus.Payload) (bus.Position, error) {
	return l.st.Append(ctx, busID, p)
}

// Poll implements Conn.
func (l *Local) Poll(ctx context.Context, busID string, start bus.Position, max int, kinds []bus.Kind) ([]bus.LogEntry, bool, error) {
	return l.st.Read(ctx, busID, start, max, kinds)
}

// Close implements Conn.
func (l *Local) Close() error { return nil }
