package wire

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ppiankov/agentbus/internal/bus"
)

// Client calls the bus service over a gRPC connection. It satisfies the
// same handle contract as an in-process bus, so callers cannot tell the
// difference. Transport failures surface as errors for the caller to retry;
// the service makes no idempotency guarantee across retried proposes.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a bus server address.
func Dial(addr string) (*Client, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to bus server: %w", err)
	}
	return &Client{cc: cc}, nil
}

// Propose appends a payload and returns the assigned position.
func (c *Client) Propose(ctx context.Context, busID string, p bus.Payload) (bus.Position, error) {
	raw, err := bus.EncodePayload(p)
	if err != nil {
		return 0, fmt.Errorf("propose: %w", err)
	}

	out := new(ProposeResponse)
	err = c.cc.Invoke(ctx, "/"+ServiceName+"/Propose",
		&ProposeRequest{AgentBusID: busID, Payload: raw}, out, grpc.ForceCodec(Codec{}))
	if err != nil {
		return 0, fmt.Errorf("propose: %w", err)
	}
	return bus.Position(out.LogPosition), nil
}

// Poll reads entries at positions >= start.
func (c *Client) Poll(ctx context.Context, busID string, start bus.Position, max int, kinds []bus.Kind) ([]bus.LogEntry, bool, error) {
	req := &PollRequest{
		AgentBusID:       busID,
		StartLogPosition: uint64(start),
		MaxEntries:       int64(max),
	}
	if len(kinds) > 0 {
		f := &Filter{PayloadTypes: make([]string, len(kinds))}
		for i, k := range kinds {
			f.PayloadTypes[i] = string(k)
		}
		req.Filter = f
	}

	out := new(PollResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Poll", req, out, grpc.ForceCodec(Codec{})); err != nil {
		return nil, false, fmt.Errorf("poll: %w", err)
	}

	entries := make([]bus.LogEntry, len(out.Entries))
	for i, e := range out.Entries {
		p, err := bus.DecodePayload(e.Payload)
		if err != nil {
			return nil, false, fmt.Errorf("poll: entry %d: %w", e.Position, err)
		}
		entries[i] = bus.LogEntry{Position: bus.Position(e.Position), Payload: p}
	}
	return entries, out.Complete, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.cc.Close()
}
