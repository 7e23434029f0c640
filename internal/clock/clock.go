// Package clock provides the scheduler abstraction that lets the decider
// loop and the client decision watch run unmodified under simulated and
// wall-clock time. Every periodic behavior is written as "do bounded work,
// then schedule the next wake-up" against a Scheduler.
package clock

import "time"

// Scheduler runs callbacks after a delay. Implementations decide whether
// the delay is simulated or real.
type Scheduler interface {
	// Schedule registers fn to run once after d has elapsed.
	Schedule(d time.Duration, fn func())
	// Now returns the time elapsed since the scheduler started.
	Now() time.Duration
}

// Wall schedules on the real clock. Callbacks fire on timer goroutines, so
// anything they touch must be safe for concurrent use.
type Wall struct {
	start time.Time
}

// NewWall creates a wall-clock scheduler anchored at the current time.
func NewWall() *Wall {
	return &Wall{start: time.Now()}
}

// Schedule implements Scheduler.
func (w *Wall) Schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Now implements Scheduler.
func (w *Wall) Now() time.Duration {
	return time.Since(w.start)
}
