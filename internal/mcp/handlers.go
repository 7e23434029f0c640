package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/agentbus/internal/bus"
)

// --- Input/Output types ---

// ProposeInput defines parameters for the bus_propose tool.
type ProposeInput struct {
	Content string `json:"content" jsonschema:"the tool call the agent intends to perform"`
}

// ProposeOutput carries the assigned log position.
type ProposeOutput struct {
	Position uint64 `json:"position"`
}

// WaitDecisionInput defines parameters for the bus_wait_decision tool.
type WaitDecisionInput struct {
	Position  uint64 `json:"position" jsonschema:"log position of the intention to wait on"`
	TimeoutMS int64  `json:"timeout_ms,omitempty" jsonschema:"how long to wait before failing closed, default 30000"`
}

// WaitDecisionOutput contains the decision, or the fail-closed timeout.
type WaitDecisionOutput struct {
	Approved    bool   `json:"approved"`
	Reason      string `json:"reason,omitempty"`
	IntentionID uint64 `json:"intention_id"`
}

// LogOutputInput defines parameters for the bus_log_output tool.
type LogOutputInput struct {
	IntentionID uint64 `json:"intention_id" jsonschema:"log position of the committed intention"`
	Content     string `json:"content" jsonschema:"observed output of the action"`
}

// LogInferenceInput defines parameters for the bus_log_inference tool.
type LogInferenceInput struct {
	Direction string `json:"direction" jsonschema:"input or output"`
	Content   string `json:"content" jsonschema:"the inference payload"`
}

// AckOutput is returned by the best-effort observability tools.
type AckOutput struct {
	Recorded bool `json:"recorded"`
}

// SetPolicyInput defines parameters for the bus_set_policy tool.
type SetPolicyInput struct {
	Policy string `json:"policy" jsonschema:"ON_BY_DEFAULT, OFF_BY_DEFAULT, or FIRST_BOOLEAN_WINS"`
}

// PollInput defines parameters for the bus_poll tool.
type PollInput struct {
	Start uint64   `json:"start,omitempty" jsonschema:"first log position to read"`
	Max   int      `json:"max,omitempty" jsonschema:"maximum entries to return, 0 for all"`
	Kinds []string `json:"kinds,omitempty" jsonschema:"payload kinds to keep, empty for all"`
}

// PollOutput contains the matching entries and the completeness flag.
type PollOutput struct {
	Entries  []EntryOutput `json:"entries"`
	Complete bool          `json:"complete"`
}

// EntryOutput is one bus entry flattened for tool consumers.
type EntryOutput struct {
	Position    uint64 `json:"position"`
	Kind        string `json:"kind"`
	Content     string `json:"content,omitempty"`
	IntentionID uint64 `json:"intention_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Policy      string `json:"policy,omitempty"`
}

// --- Handlers ---

func (s *Server) handlePropose(ctx context.Context, req *mcpsdk.CallToolRequest, input ProposeInput) (*mcpsdk.CallToolResult, ProposeOutput, error) {
	pos, err := s.client.LogIntention(ctx, input.Content)
	if err != nil {
		return nil, ProposeOutput{}, fmt.Errorf("propose failed: %w", err)
	}
	return nil, ProposeOutput{Position: uint64(pos)}, nil
}

func (s *Server) handleWaitDecision(ctx context.Context, req *mcpsdk.CallToolRequest, input WaitDecisionInput) (*mcpsdk.CallToolResult, WaitDecisionOutput, error) {
	timeout := 30 * time.Second
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}
	d := s.client.WaitForDecision(ctx, bus.Position(input.Position), timeout)
	return nil, WaitDecisionOutput{
		Approved:    d.Approved,
		Reason:      d.Reason,
		IntentionID: uint64(d.IntentionID),
	}, nil
}

func (s *Server) handleLogOutput(ctx context.Context, req *mcpsdk.CallToolRequest, input LogOutputInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	s.client.LogActionOutput(ctx, bus.Position(input.IntentionID), input.Content)
	return nil, AckOutput{Recorded: true}, nil
}

func (s *Server) handleLogInference(ctx context.Context, req *mcpsdk.CallToolRequest, input LogInferenceInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	switch input.Direction {
	case "input":
		s.client.LogInferenceInput(ctx, input.Content)
	case "output":
		s.client.LogInferenceOutput(ctx, input.Content)
	default:
		return nil, AckOutput{}, fmt.Errorf("unknown direction %q: want input or output", input.Direction)
	}
	return nil, AckOutput{Recorded: true}, nil
}

func (s *Server) handleSetPolicy(ctx context.Context, req *mcpsdk.CallToolRequest, input SetPolicyInput) (*mcpsdk.CallToolResult, ProposeOutput, error) {
	p, err := bus.ParsePolicy(input.Policy)
	if err != nil {
		return nil, ProposeOutput{}, err
	}
	pos, err := s.client.SetDeciderPolicy(ctx, p)
	if err != nil {
		return nil, ProposeOutput{}, fmt.Errorf("set policy failed: %w", err)
	}
	return nil, ProposeOutput{Position: uint64(pos)}, nil
}

func (s *Server) handlePoll(ctx context.Context, req *mcpsdk.CallToolRequest, input PollInput) (*mcpsdk.CallToolResult, PollOutput, error) {
	kinds := make([]bus.Kind, 0, len(input.Kinds))
	for _, k := range input.Kinds {
		kinds = append(kinds, bus.Kind(k))
	}
	entries, complete, err := s.client.Poll(ctx, bus.Position(input.Start), input.Max, kinds...)
	if err != nil {
		return nil, PollOutput{}, fmt.Errorf("poll failed: %w", err)
	}
	out := PollOutput{Entries: make([]EntryOutput, 0, len(entries)), Complete: complete}
	for _, e := range entries {
		out.Entries = append(out.Entries, flattenEntry(e))
	}
	return nil, out, nil
}

func flattenEntry(e bus.LogEntry) EntryOutput {
	out := EntryOutput{Position: uint64(e.Position), Kind: string(e.Payload.Kind())}
	switch p := e.Payload.(type) {
	case bus.Intention:
		out.Content = p.Content
	case bus.ActionOutput:
		out.IntentionID = uint64(p.IntentionID)
		out.Content = p.Content
	case bus.InferenceInput:
		out.Content = p.Content
	case bus.InferenceOutput:
		out.Content = p.Content
	case bus.Commit:
		out.IntentionID = uint64(p.IntentionID)
		out.Reason = p.Reason
	case bus.Abort:
		out.IntentionID = uint64(p.IntentionID)
		out.Reason = p.Reason
	case bus.DeciderPolicy:
		out.Policy = string(p.Value)
	}
	return out
}
