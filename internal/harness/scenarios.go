package harness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/agentbus/internal/bus"
)

// Scenario is one behavioral check written against the abstract bus
// handle. The same body runs on the simulated and the live backend.
type Scenario struct {
	Name string
	Run  func(t *testing.T, f Fixture)
}

// Scenarios returns the shared library of conformance scenarios.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "propose-ordering", Run: scenarioProposeOrdering},
		{Name: "poll-append-order", Run: scenarioPollAppendOrder},
		{Name: "poll-filtering", Run: scenarioPollFiltering},
		{Name: "policy-on-by-default", Run: scenarioOnByDefault},
		{Name: "policy-off-by-default", Run: scenarioOffByDefault},
		{Name: "first-boolean-wins", Run: scenarioFirstBooleanWins},
		{Name: "wait-timeout", Run: scenarioWaitTimeout},
		{Name: "late-decision", Run: scenarioLateDecision},
		{Name: "policy-change-not-retroactive", Run: scenarioPolicyChange},
	}
}

// scenarioProposeOrdering interleaves proposes from two independent
// handles: positions must be strictly increasing from 0 with no gaps or
// repeats across proposers.
func scenarioProposeOrdering(t *testing.T, f Fixture) {
	a := f.Handle()
	b := f.Handle()

	var positions []bus.Position
	for i := 0; i < 4; i++ {
		pa, err := a.LogIntention("from-a")
		require.NoError(t, err)
		pb, err := b.LogIntention("from-b")
		require.NoError(t, err)
		positions = append(positions, pa, pb)
	}

	for i, p := range positions {
		require.Equal(t, bus.Position(i), p, "positions must be gapless from 0")
	}
}

// scenarioPollAppendOrder checks that an unbounded poll from 0 returns
// entries in exactly append order, and that a fresh bus reads as an empty,
// complete log.
func scenarioPollAppendOrder(t *testing.T, f Fixture) {
	h := f.Handle()

	entries, complete, err := h.Poll(0, 0)
	require.NoError(t, err)
	require.Empty(t, entries, "fresh bus must read as an implicitly created empty log")
	require.True(t, complete)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		_, err := h.LogIntention(c)
		require.NoError(t, err)
	}

	entries, complete, err = h.Poll(0, 0)
	require.NoError(t, err)
	require.True(t, complete)
	require.Len(t, entries, len(contents))
	for i, e := range entries {
		require.Equal(t, bus.Position(i), e.Position)
		require.Equal(t, bus.Intention{Content: contents[i]}, e.Payload)
	}
}

// scenarioPollFiltering exercises the filter edge cases: matching kinds
// only, complete computed against the unfiltered tail, max truncation, and
// unknown kinds matching nothing.
func scenarioPollFiltering(t *testing.T, f Fixture) {
	h := f.Handle()

	i0, err := h.LogIntention("one")
	require.NoError(t, err)
	_, err = h.Propose(bus.InferenceInput{Content: "prompt"})
	require.NoError(t, err)
	i2, err := h.LogIntention("two")
	require.NoError(t, err)
	_, err = h.Propose(bus.ActionOutput{IntentionID: i0, Content: "done"})
	require.NoError(t, err)

	// Filtered read: intentions only, but the trailing non-matching entry
	// does not make the read incomplete.
	entries, complete, err := h.Poll(0, 0, bus.KindIntention)
	require.NoError(t, err)
	require.True(t, complete, "filtering must not hide the true completion state")
	require.Len(t, entries, 2)
	require.Equal(t, i0, entries[0].Position)
	require.Equal(t, i2, entries[1].Position)

	// A max cap that leaves a matching entry behind is incomplete.
	entries, complete, err = h.Poll(0, 1, bus.KindIntention)
	require.NoError(t, err)
	require.False(t, complete)
	require.Len(t, entries, 1)

	// Unknown payload types match nothing, never error.
	entries, complete, err = h.Poll(0, 0, bus.Kind("bogus"))
	require.NoError(t, err)
	require.True(t, complete)
	require.Empty(t, entries)
}

// scenarioOnByDefault: every intention proposed under ON_BY_DEFAULT is
// followed, within the poll-interval bound, by exactly one matching commit.
func scenarioOnByDefault(t *testing.T, f Fixture) {
	f.StartDecider(bus.OnByDefault)
	h := f.Handle()

	id, err := h.LogIntention("echo hi")
	require.NoError(t, err)

	dec := h.WaitForDecision(id, 20*f.Interval())
	require.True(t, dec.Approved)
	require.Equal(t, "auto-commit", dec.Reason)
	require.Equal(t, id, dec.IntentionID)

	f.Settle(4 * f.Interval())
	decisions, _, err := h.Poll(0, 0, bus.KindCommit, bus.KindAbort)
	require.NoError(t, err)
	matching := 0
	for _, e := range decisions {
		if ref, approved, ok := bus.DecisionRef(e.Payload); ok && ref == id {
			require.True(t, approved)
			matching++
		}
	}
	require.Equal(t, 1, matching, "exactly one decision per intention")
}

// scenarioOffByDefault mirrors scenarioOnByDefault for aborts.
func scenarioOffByDefault(t *testing.T, f Fixture) {
	f.StartDecider(bus.OffByDefault)
	h := f.Handle()

	id, err := h.LogIntention("rm -rf /")
	require.NoError(t, err)

	dec := h.WaitForDecision(id, 20*f.Interval())
	require.False(t, dec.Approved)
	require.Equal(t, "auto-abort", dec.Reason)

	f.Settle(4 * f.Interval())
	decisions, _, err := h.Poll(0, 0, bus.KindCommit, bus.KindAbort)
	require.NoError(t, err)
	matching := 0
	for _, e := range decisions {
		if ref, approved, ok := bus.DecisionRef(e.Payload); ok && ref == id {
			require.False(t, approved)
			matching++
		}
	}
	require.Equal(t, 1, matching)
}

// scenarioFirstBooleanWins: with two conflicting external decisions the
// one at the lower log position is authoritative, regardless of which the
// waiter sees arrive.
func scenarioFirstBooleanWins(t *testing.T, f Fixture) {
	f.StartDecider(bus.FirstBooleanWins)
	voter := f.Handle()
	agent := f.Handle()

	id, err := agent.LogIntention("transfer funds")
	require.NoError(t, err)

	_, err = voter.Propose(bus.Abort{IntentionID: id, Reason: "human veto"})
	require.NoError(t, err)
	_, err = voter.Propose(bus.Commit{IntentionID: id, Reason: "model vote"})
	require.NoError(t, err)

	dec := agent.WaitForDecision(id, 20*f.Interval())
	require.False(t, dec.Approved, "lower-position decision wins")
	require.Equal(t, "human veto", dec.Reason)

	// The decider itself writes nothing under FIRST_BOOLEAN_WINS.
	f.Settle(4 * f.Interval())
	decisions, _, err := agent.Poll(0, 0, bus.KindCommit, bus.KindAbort)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
}

// scenarioWaitTimeout: no decision ever appears, so the waiter fails
// closed after its timeout.
func scenarioWaitTimeout(t *testing.T, f Fixture) {
	h := f.Handle()

	id, err := h.LogIntention("anybody there")
	require.NoError(t, err)

	dec := h.WaitForDecision(id, 4*f.Interval())
	require.False(t, dec.Approved)
	require.Equal(t, "timed out", dec.Reason)
	require.Equal(t, id, dec.IntentionID)
}

// scenarioLateDecision: a client-local timeout does not retract the
// intention; it remains decidable and a later wait observes the decision.
func scenarioLateDecision(t *testing.T, f Fixture) {
	agent := f.Handle()
	voter := f.Handle()

	id, err := agent.LogIntention("slow approval")
	require.NoError(t, err)

	dec := agent.WaitForDecision(id, 2*f.Interval())
	require.False(t, dec.Approved)

	_, err = voter.Propose(bus.Commit{IntentionID: id, Reason: "approved after all"})
	require.NoError(t, err)

	dec = agent.WaitForDecision(id, 20*f.Interval())
	require.True(t, dec.Approved)
	require.Equal(t, "approved after all", dec.Reason)
}

// scenarioPolicyChange: a policy entry applies to intentions the decider
// observes after it, never retroactively.
func scenarioPolicyChange(t *testing.T, f Fixture) {
	f.StartDecider(bus.OnByDefault)
	h := f.Handle()

	first, err := h.LogIntention("under on")
	require.NoError(t, err)
	_, err = h.SetDeciderPolicy(bus.OffByDefault)
	require.NoError(t, err)
	second, err := h.LogIntention("under off")
	require.NoError(t, err)

	dec := h.WaitForDecision(first, 20*f.Interval())
	require.True(t, dec.Approved, "intention before the policy entry keeps the old policy")

	dec = h.WaitForDecision(second, 20*f.Interval())
	require.False(t, dec.Approved)
	require.Equal(t, "auto-abort", dec.Reason)
}
