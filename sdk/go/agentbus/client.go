package agentbus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/conn"
	"github.com/ppiankov/agentbus/internal/wire"
)

// Client is an agent's handle to one bus. Safe for concurrent use; all
// state beyond the bus itself is a private read cursor per call.
type Client struct {
	cfg clientConfig
	cn  conn.Conn
	id  string
}

// New creates a Client over an existing bus handle. The handle may be
// in-process or remote; the client cannot tell.
func New(cn conn.Conn, opts ...Option) *Client {
	cfg := clientConfig{
		busID:    "default",
		interval: 500 * time.Millisecond,
		logger:   zerolog.Nop(),
		sched:    clock.NewWall(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	id := uuid.NewString()
	// Every log event this client emits carries its id, so interleaved
	// output from several clients on one bus stays attributable.
	cfg.logger = cfg.logger.With().Str("client", id).Logger()
	return &Client{cfg: cfg, cn: cn, id: id}
}

// Dial connects to a bus server address. Convenience for the common
// remote case.
func Dial(addr string, opts ...Option) (*Client, error) {
	c, err := wire.Dial(addr)
	if err != nil {
		return nil, err
	}
	return New(c, opts...), nil
}

// LogIntention proposes an Intention and returns its position, which is
// the intention's durable id.
func (c *Client) LogIntention(ctx context.Context, content string) (bus.Position, error) {
	return c.cn.Propose(ctx, c.cfg.busID, bus.Intention{Content: content})
}

// SetDeciderPolicy proposes a DeciderPolicy entry. It takes effect only
// for intentions proposed after the decider observes it, never
// retroactively.
func (c *Client) SetDeciderPolicy(ctx context.Context, p bus.Policy) (bus.Position, error) {
	return c.cn.Propose(ctx, c.cfg.busID, bus.DeciderPolicy{Value: p})
}

// LogActionOutput records the result of an executed intention.
// Fire-and-forget: failures are logged locally, never returned.
func (c *Client) LogActionOutput(ctx context.Context, intentionID bus.Position, content string) {
	c.fireAndForget(ctx, bus.ActionOutput{IntentionID: intentionID, Content: content})
}

// LogInferenceInput records a prompt sent to a model. Fire-and-forget.
func (c *Client) LogInferenceInput(ctx context.Context, content string) {
	c.fireAndForget(ctx, bus.InferenceInput{Content: content})
}

// LogInferenceOutput records a model completion. Fire-and-forget.
func (c *Client) LogInferenceOutput(ctx context.Context, content string) {
	c.fireAndForget(ctx, bus.InferenceOutput{Content: content})
}

func (c *Client) fireAndForget(ctx context.Context, p bus.Payload) {
	if _, err := c.cn.Propose(ctx, c.cfg.busID, p); err != nil {
		c.cfg.logger.Warn().Err(err).
			Str("bus", c.cfg.busID).
			Str("kind", string(p.Kind())).
			Msg("observability write dropped")
	}
}

// Propose appends an arbitrary payload. Most callers want the typed
// helpers instead.
func (c *Client) Propose(ctx context.Context, p bus.Payload) (bus.Position, error) {
	return c.cn.Propose(ctx, c.cfg.busID, p)
}

// Poll reads entries at positions >= start, optionally filtered by kind.
func (c *Client) Poll(ctx context.Context, start bus.Position, max int, kinds ...bus.Kind) ([]bus.LogEntry, bool, error) {
	return c.cn.Poll(ctx, c.cfg.busID, start, max, kinds)
}

// WaitForDecision blocks until the first Commit or Abort referencing
// intentionID appears, or the timeout elapses. On timeout it fails closed
// with Approved=false. Cancelling ctx is client-local: it never retracts
// the intention, which remains decidable for other observers.
func (c *Client) WaitForDecision(ctx context.Context, intentionID bus.Position, timeout time.Duration) Decision {
	ch := make(chan Decision, 1)
	StartDecisionWatch(c.cn, c.cfg.sched, c.cfg.busID, intentionID, c.cfg.interval, timeout, c.cfg.logger,
		func(d Decision) { ch <- d })

	select {
	case d := <-ch:
		return d
	case <-ctx.Done():
		return Decision{IntentionID: intentionID, Approved: false, Reason: "canceled"}
	}
}

// Close closes the underlying bus handle.
func (c *Client) Close() error {
	return c.cn.Close()
}
