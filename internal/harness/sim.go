package harness

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/conn"
	"github.com/ppiankov/agentbus/internal/decider"
	"github.com/ppiankov/agentbus/internal/store"
	"github.com/ppiankov/agentbus/sdk/go/agentbus"
)

// simInterval is generous because simulated time is free; it also matches
// the decider's production default.
const simInterval = 500 * time.Millisecond

// SimBackend provisions in-process buses on a seeded virtual clock. A
// single logical thread of control drives everything; concurrency is
// modeled purely as deterministic interleaving of scheduled callbacks.
type SimBackend struct {
	Seed int64
}

// Name implements Backend.
func (b *SimBackend) Name() string { return "sim" }

// Open implements Backend.
func (b *SimBackend) Open(t *testing.T) Fixture {
	t.Helper()
	return &simFixture{
		clk:   clock.NewVirtual(b.Seed),
		cn:    conn.NewLocal(store.NewMemStore()),
		busID: "1",
	}
}

type simFixture struct {
	clk   *clock.Virtual
	cn    conn.Conn
	busID string
	dec   *decider.Decider
}

func (f *simFixture) Handle() Handle { return &simHandle{f: f} }

func (f *simFixture) StartDecider(policy bus.Policy) {
	f.dec = decider.New(f.cn, f.clk, decider.Config{
		BusID:    f.busID,
		Policy:   policy,
		Interval: simInterval,
		Logger:   zerolog.Nop(),
	})
	f.dec.Start()
}

func (f *simFixture) StopDecider() {
	if f.dec != nil {
		f.dec.Stop()
		f.dec = nil
	}
}

func (f *simFixture) Interval() time.Duration { return simInterval }

func (f *simFixture) Settle(d time.Duration) {
	f.clk.RunUntil(f.clk.Now() + d)
}

func (f *simFixture) Close() {
	f.StopDecider()
	f.cn.Close()
}

// simHandle issues local calls; waiting pumps the virtual clock.
type simHandle struct {
	f *simFixture
}

func (h *simHandle) Propose(p bus.Payload) (bus.Position, error) {
	return h.f.cn.Propose(context.Background(), h.f.busID, p)
}

func (h *simHandle) Poll(start bus.Position, max int, kinds ...bus.Kind) ([]bus.LogEntry, bool, error) {
	return h.f.cn.Poll(context.Background(), h.f.busID, start, max, kinds)
}

func (h *simHandle) LogIntention(content string) (bus.Position, error) {
	return h.Propose(bus.Intention{Content: content})
}

func (h *simHandle) SetDeciderPolicy(p bus.Policy) (bus.Position, error) {
	return h.Propose(bus.DeciderPolicy{Value: p})
}

// WaitForDecision starts the shared decision watch, then drives the
// virtual clock until the watch reports. The watch itself enforces the
// fail-closed timeout, so the pump always terminates.
func (h *simHandle) WaitForDecision(intentionID bus.Position, timeout time.Duration) agentbus.Decision {
	var out agentbus.Decision
	got := false
	agentbus.StartDecisionWatch(h.f.cn, h.f.clk, h.f.busID, intentionID, simInterval, timeout, zerolog.Nop(),
		func(d agentbus.Decision) {
			out = d
			got = true
		})
	for !got && h.f.clk.Step() {
	}
	return out
}
