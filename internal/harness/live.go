package harness

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/decider"
	"github.com/ppiankov/agentbus/internal/server"
	"github.com/ppiankov/agentbus/internal/wire"
	"github.com/ppiankov/agentbus/sdk/go/agentbus"
)

// liveInterval keeps wall-clock scenarios fast while preserving the
// poll-bounded latency contract.
const liveInterval = 25 * time.Millisecond

// LiveBackend provisions a real gRPC bus server on a loopback port. Every
// handle is an independent network client; the decider connects over the
// network like any other client.
type LiveBackend struct{}

// Name implements Backend.
func (b *LiveBackend) Name() string { return "live" }

// Open implements Backend.
func (b *LiveBackend) Open(t *testing.T) Fixture {
	t.Helper()

	srv, err := server.New(server.Config{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.ServeOn(lis)

	return &liveFixture{
		t:     t,
		srv:   srv,
		addr:  lis.Addr().String(),
		busID: "1",
	}
}

type liveFixture struct {
	t     *testing.T
	srv   *server.Server
	addr  string
	busID string

	dec     *decider.Decider
	decConn *wire.Client
	clients []*agentbus.Client
}

func (f *liveFixture) Handle() Handle {
	c, err := agentbus.Dial(f.addr,
		agentbus.WithBusID(f.busID),
		agentbus.WithPollInterval(liveInterval))
	if err != nil {
		f.t.Fatalf("dial: %v", err)
	}
	f.clients = append(f.clients, c)
	return &liveHandle{c: c}
}

func (f *liveFixture) StartDecider(policy bus.Policy) {
	cn, err := wire.Dial(f.addr)
	if err != nil {
		f.t.Fatalf("decider dial: %v", err)
	}
	f.decConn = cn
	f.dec = decider.New(cn, clock.NewWall(), decider.Config{
		BusID:    f.busID,
		Policy:   policy,
		Interval: liveInterval,
		Logger:   zerolog.Nop(),
	})
	f.dec.Start()
}

func (f *liveFixture) StopDecider() {
	if f.dec != nil {
		f.dec.Stop()
		f.dec = nil
	}
	if f.decConn != nil {
		f.decConn.Close()
		f.decConn = nil
	}
}

func (f *liveFixture) Interval() time.Duration { return liveInterval }

func (f *liveFixture) Settle(d time.Duration) { time.Sleep(d) }

func (f *liveFixture) Close() {
	f.StopDecider()
	for _, c := range f.clients {
		c.Close()
	}
	f.srv.GracefulStop()
	f.srv.Close()
}

// liveHandle wraps an SDK client connected over the network.
type liveHandle struct {
	c *agentbus.Client
}

func (h *liveHandle) Propose(p bus.Payload) (bus.Position, error) {
	return h.c.Propose(context.Background(), p)
}

func (h *liveHandle) Poll(start bus.Position, max int, kinds ...bus.Kind) ([]bus.LogEntry, bool, error) {
	return h.c.Poll(context.Background(), start, max, kinds...)
}

func (h *liveHandle) LogIntention(content string) (bus.Position, error) {
	return h.c.LogIntention(context.Background(), content)
}

func (h *liveHandle) SetDeciderPolicy(p bus.Policy) (bus.Position, error) {
	return h.c.SetDeciderPolicy(context.Background(), p)
}

func (h *liveHandle) WaitForDecision(intentionID bus.Position, timeout time.Duration) agentbus.Decision {
	return h.c.WaitForDecision(context.Background(), intentionID, timeout)
}
