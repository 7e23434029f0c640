package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/agentbus/internal/bus"
)

// Transcript runs the scripted conformance sequence against a fixture and
// returns the observed log, one line per entry. The same script must
// produce an identical transcript on the simulated and the live backend.
func Transcript(t *testing.T, f Fixture) []byte {
	t.Helper()

	f.StartDecider(bus.FirstBooleanWins)
	h := f.Handle()

	_, err := h.SetDeciderPolicy(bus.OnByDefault)
	require.NoError(t, err)

	first, err := h.LogIntention("echo hi")
	require.NoError(t, err)
	dec := h.WaitForDecision(first, 20*f.Interval())
	require.True(t, dec.Approved)

	second, err := h.LogIntention("tail -n 20 /var/log/syslog")
	require.NoError(t, err)
	dec = h.WaitForDecision(second, 20*f.Interval())
	require.True(t, dec.Approved)

	_, err = h.SetDeciderPolicy(bus.OffByDefault)
	require.NoError(t, err)

	third, err := h.LogIntention("curl http://127.0.0.1:9")
	require.NoError(t, err)
	dec = h.WaitForDecision(third, 20*f.Interval())
	require.False(t, dec.Approved)

	_, err = h.Propose(bus.ActionOutput{IntentionID: first, Content: "hi"})
	require.NoError(t, err)
	_, err = h.Propose(bus.InferenceInput{Content: "plan the next step"})
	require.NoError(t, err)

	f.Settle(4 * f.Interval())

	entries, complete, err := h.Poll(0, 0)
	require.NoError(t, err)
	require.True(t, complete)

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(formatEntry(e))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func formatEntry(e bus.LogEntry) string {
	switch p := e.Payload.(type) {
	case bus.Intention:
		return fmt.Sprintf("%d intention %s", e.Position, p.Content)
	case bus.ActionOutput:
		return fmt.Sprintf("%d action_output intention=%d %s", e.Position, p.IntentionID, p.Content)
	case bus.InferenceInput:
		return fmt.Sprintf("%d inference_input %s", e.Position, p.Content)
	case bus.InferenceOutput:
		return fmt.Sprintf("%d inference_output %s", e.Position, p.Content)
	case bus.Commit:
		return fmt.Sprintf("%d commit intention=%d reason=%s", e.Position, p.IntentionID, p.Reason)
	case bus.Abort:
		return fmt.Sprintf("%d abort intention=%d reason=%s", e.Position, p.IntentionID, p.Reason)
	case bus.DeciderPolicy:
		return fmt.Sprintf("%d decider_policy %s", e.Position, p.Value)
	case bus.Extension:
		return fmt.Sprintf("%d extension %s (%d bytes)", e.Position, p.TypeTag, len(p.Data))
	}
	return fmt.Sprintf("%d unknown", e.Position)
}
