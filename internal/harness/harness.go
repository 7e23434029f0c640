// Package harness runs one scenario library against two interchangeable
// bus backends: a deterministic simulated bus (virtual clock, single
// owner) and a live networked bus (real gRPC server, independent client
// connections, wall clock). Scenarios are written once against the
// abstract handle and must pass on both, proving behavioral parity
// between the fast deterministic path and the real deployment path.
package harness

import (
	"testing"
	"time"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/sdk/go/agentbus"
)

// Handle is the capability a scenario gets: one client's view of a bus.
// Whether an operation is a local call or a network round-trip is hidden.
type Handle interface {
	Propose(p bus.Payload) (bus.Position, error)
	Poll(start bus.Position, max int, kinds ...bus.Kind) ([]bus.LogEntry, bool, error)
	LogIntention(content string) (bus.Position, error)
	SetDeciderPolicy(p bus.Policy) (bus.Position, error)
	WaitForDecision(intentionID bus.Position, timeout time.Duration) agentbus.Decision
}

// Fixture is one provisioned bus with its decider and clock.
type Fixture interface {
	// Handle returns a new independent client handle to the bus.
	Handle() Handle
	// StartDecider runs a decider on the bus with the given initial
	// policy, polling at Interval.
	StartDecider(policy bus.Policy)
	StopDecider()
	// Interval is the poll interval of this backend. Scenarios express
	// waits in multiples of it so both backends stay fast.
	Interval() time.Duration
	// Settle lets d of bus time elapse: a simulated jump or a real sleep.
	Settle(d time.Duration)
	Close()
}

// Backend provisions fixtures.
type Backend interface {
	Name() string
	Open(t *testing.T) Fixture
}

// Backends returns both backends. The seed drives the simulated backend's
// clock; the live backend ignores it.
func Backends(seed int64) []Backend {
	return []Backend{
		&SimBackend{Seed: seed},
		&LiveBackend{},
	}
}
