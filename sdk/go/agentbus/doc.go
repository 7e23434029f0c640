// Package agentbus is the agent-facing binding to a bus: the ordered event
// log that records what an agent intends to do, what came of it, and the
// commit/abort decision an external authority issued for it.
//
// Usage:
//
//	ab, err := agentbus.Dial("localhost:50061", agentbus.WithBusID("1"))
//	id, err := ab.LogIntention(ctx, "echo hi")
//	dec := ab.WaitForDecision(ctx, id, time.Second)
//	if dec.Approved {
//	    out := runTool()
//	    ab.LogActionOutput(ctx, id, out)
//	}
//
// WaitForDecision fails closed: if no decision arrives before the timeout,
// the answer is "not approved". The observability writers (LogActionOutput,
// LogInferenceInput, LogInferenceOutput) are fire-and-forget: failures are
// logged locally and never fail the caller's primary task.
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/ppiankov/agentbus/sdk/go/agentbus.
package agentbus
