package agentbus

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/conn"
)

// watchBatch bounds the entries fetched per watch poll.
const watchBatch = 256

// Decision is the outcome of waiting on an intention.
type Decision struct {
	IntentionID bus.Position
	Approved    bool
	Reason      string
}

// StartDecisionWatch polls for the first Commit or Abort referencing
// intentionID and invokes done exactly once: with that decision, or with a
// fail-closed timeout. Each step does one bounded poll and schedules the
// next wake-up on the scheduler, so the same watch runs unmodified under
// the virtual clock and under wall time.
//
// Decisions are scanned in position order from the start of the log, so the
// lowest-position decision wins regardless of arrival order at the caller;
// later conflicting entries are informational only.
func StartDecisionWatch(cn conn.Conn, sched clock.Scheduler, busID string, intentionID bus.Position, interval, timeout time.Duration, logger zerolog.Logger, done func(Decision)) {
	w := &decisionWatch{
		cn:       cn,
		sched:    sched,
		busID:    busID,
		id:       intentionID,
		interval: interval,
		deadline: sched.Now() + timeout,
		logger:   logger,
		done:     done,
	}
	w.step()
}

type decisionWatch struct {
	cn       conn.Conn
	sched    clock.Scheduler
	busID    string
	id       bus.Position
	interval time.Duration
	deadline time.Duration
	cursor   bus.Position
	logger   zerolog.Logger
	done     func(Decision)
}

func (w *decisionWatch) step() {
	entries, _, err := w.cn.Poll(context.Background(), w.busID, w.cursor, watchBatch,
		[]bus.Kind{bus.KindCommit, bus.KindAbort})
	if err != nil {
		// Transport errors are retried at the next interval; the deadline
		// still bounds the wait.
		w.logger.Warn().Err(err).Str("bus", w.busID).Msg("decision poll failed")
	} else {
		for _, e := range entries {
			id, approved, ok := bus.DecisionRef(e.Payload)
			if !ok || id != w.id {
				continue
			}
			w.done(Decision{IntentionID: w.id, Approved: approved, Reason: decisionReason(e.Payload)})
			return
		}
		if len(entries) > 0 {
			w.cursor = entries[len(entries)-1].Position + 1
		}
	}

	if w.sched.Now() >= w.deadline {
		w.done(Decision{IntentionID: w.id, Approved: false, Reason: "timed out"})
		return
	}
	w.sched.Schedule(w.interval, w.step)
}

func decisionReason(p bus.Payload) string {
	switch d := p.(type) {
	case bus.Commit:
		return d.Reason
	case bus.Abort:
		return d.Reason
	}
	return ""
}
