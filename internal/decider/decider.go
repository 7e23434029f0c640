// Package decider implements the background policy engine that issues
// commit/abort decisions for intentions on one bus.
package decider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/conn"
)

// pollBatch bounds the work done per poll round trip.
const pollBatch = 256

// Config holds per-decider configuration.
type Config struct {
	BusID string
	// Policy applies to intentions until a DeciderPolicy entry overrides it.
	Policy bus.Policy
	// Interval between cycles. Decision latency is bounded by it.
	Interval time.Duration
	Logger   zerolog.Logger
}

// Decider loops Idle -> Polling -> Deciding -> Idle at the configured
// interval. It owns a private, in-memory read cursor over the bus; the
// cursor is never persisted. A restarted decider replays from position 0
// and skips intentions whose decision entry is already visible, so restart
// recovery is pure log replay.
//
// Cycles are scheduled on a clock.Scheduler, so the same decider runs under
// the deterministic virtual clock and under wall time.
type Decider struct {
	cn    conn.Conn
	sched clock.Scheduler
	cfg   Config

	running chan struct{} // closed by Stop; nil before Start

	// cycle-owned state, touched only from scheduled callbacks
	cursor  bus.Position
	policy  bus.Policy
	decided map[bus.Position]bool
}

// New creates a stopped decider.
func New(cn conn.Conn, sched clock.Scheduler, cfg Config) *Decider {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Decider{
		cn:      cn,
		sched:   sched,
		cfg:     cfg,
		policy:  cfg.Policy,
		decided: make(map[bus.Position]bool),
	}
}

// Start schedules the first cycle. Calling Start on a running decider is a
// no-op.
func (d *Decider) Start() {
	if d.running != nil {
		select {
		case <-d.running:
		default:
			return
		}
	}
	d.running = make(chan struct{})
	stop := d.running
	d.sched.Schedule(0, func() { d.cycle(stop) })
	d.cfg.Logger.Info().
		Str("bus", d.cfg.BusID).
		Str("policy", string(d.cfg.Policy)).
		Dur("interval", d.cfg.Interval).
		Msg("decider started")
}

// Stop halts the loop after the current cycle. The cursor is discarded;
// a later Start replays history.
func (d *Decider) Stop() {
	if d.running == nil {
		return
	}
	select {
	case <-d.running:
	default:
		close(d.running)
	}
}

// cycle runs one Polling/Deciding pass and schedules the next wake-up.
// stop identifies the Start generation this cycle belongs to, so a
// stopped-and-restarted decider never runs two loops.
func (d *Decider) cycle(stop chan struct{}) {
	select {
	case <-stop:
		return
	default:
	}

	d.RunOnce(context.Background())
	d.sched.Schedule(d.cfg.Interval, func() { d.cycle(stop) })
}

// RunOnce performs a single poll-and-decide pass: it drains the log from
// the cursor, then applies the policy in log order. The cursor only
// advances when every decision append succeeded, so a failed append is
// replayed next cycle and skipped once its decision is visible.
func (d *Decider) RunOnce(ctx context.Context) {
	var pending []bus.LogEntry
	scan := d.cursor
	for {
		entries, complete, err := d.cn.Poll(ctx, d.cfg.BusID, scan, pollBatch, nil)
		if err != nil {
			d.cfg.Logger.Warn().Err(err).Str("bus", d.cfg.BusID).Msg("poll failed")
			return
		}
		pending = append(pending, entries...)
		if len(entries) > 0 {
			scan = entries[len(entries)-1].Position + 1
		}
		if complete {
			break
		}
	}

	// Mark decisions first so an intention whose decision already sits
	// later in the drained window is skipped, not re-decided.
	for _, e := range pending {
		if id, _, ok := bus.DecisionRef(e.Payload); ok {
			d.decided[id] = true
		}
	}

	for _, e := range pending {
		if err := d.apply(ctx, e); err != nil {
			d.cfg.Logger.Warn().Err(err).
				Str("bus", d.cfg.BusID).
				Uint64("position", uint64(e.Position)).
				Msg("decision append failed, entry will be replayed")
			return
		}
	}
	d.cursor = scan
}

// apply processes one entry in log order: policy switches take effect for
// intentions at later positions, never retroactively.
func (d *Decider) apply(ctx context.Context, e bus.LogEntry) error {
	switch p := e.Payload.(type) {
	case bus.DeciderPolicy:
		d.policy = p.Value
		d.cfg.Logger.Info().
			Str("bus", d.cfg.BusID).
			Str("policy", string(p.Value)).
			Uint64("position", uint64(e.Position)).
			Msg("policy changed")

	case bus.Intention:
		if d.decided[e.Position] {
			return nil
		}
		var decision bus.Payload
		switch d.policy {
		case bus.OnByDefault:
			decision = bus.Commit{IntentionID: e.Position, Reason: "auto-commit"}
		case bus.OffByDefault:
			decision = bus.Abort{IntentionID: e.Position, Reason: "auto-abort"}
		case bus.FirstBooleanWins:
			// External voters decide; the lowest-position decision wins
			// and the decider writes nothing.
			return nil
		default:
			return nil
		}
		if _, err := d.cn.Propose(ctx, d.cfg.BusID, decision); err != nil {
			return err
		}
		d.decided[e.Position] = true
		d.cfg.Logger.Debug().
			Str("bus", d.cfg.BusID).
			Uint64("intention", uint64(e.Position)).
			Str("kind", string(decision.Kind())).
			Msg("decided")
	}
	return nil
}
