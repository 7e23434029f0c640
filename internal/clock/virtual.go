package clock

import (
	"container/heap"
	"math/rand"
	"time"
)

// Virtual is a deterministic discrete-event scheduler. Time never advances
// on its own: Run, RunUntil, and Step jump simulated time directly to the
// next scheduled event. Events at the same instant fire in the order they
// were scheduled.
//
// Virtual is single-owner: callbacks run on the goroutine that drives it,
// and no other goroutine may touch it. Simulated scenarios must not spawn
// incidental threads or reproducibility is lost.
//
// Determinism contract: an identical seed plus an identical sequence of
// external stimuli produces an identical callback firing order. Scheduling
// never consumes the seeded source, so draws from Rand are part of the
// stimuli, not the scheduler.
type Virtual struct {
	now time.Duration
	seq uint64
	pq  eventQueue
	rng *rand.Rand
}

// NewVirtual creates a virtual clock at time zero with the given seed.
func NewVirtual(seed int64) *Virtual {
	return &Virtual{rng: rand.New(rand.NewSource(seed))}
}

// Schedule implements Scheduler. Negative delays fire at the current time.
func (v *Virtual) Schedule(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	heap.Push(&v.pq, event{at: v.now + d, seq: v.seq, fn: fn})
	v.seq++
}

// Now implements Scheduler, in elapsed virtual nanoseconds.
func (v *Virtual) Now() time.Duration {
	return v.now
}

// Rand returns the seeded source for scenario-level stimuli such as
// shuffled interleavings.
func (v *Virtual) Rand() *rand.Rand {
	return v.rng
}

// Step fires the single next pending event, advancing time to its deadline.
// It reports false when no work is pending.
func (v *Virtual) Step() bool {
	if v.pq.Len() == 0 {
		return false
	}
	e := heap.Pop(&v.pq).(event)
	v.now = e.at
	e.fn()
	return true
}

// NextAt reports the deadline of the next pending event.
func (v *Virtual) NextAt() (time.Duration, bool) {
	if v.pq.Len() == 0 {
		return 0, false
	}
	return v.pq[0].at, true
}

// Run drains all pending work, including work scheduled by the callbacks it
// fires. It only returns once nothing remains, so self-rescheduling loops
// must be stopped before calling it.
func (v *Virtual) Run() {
	for v.Step() {
	}
}

// RunUntil fires every event scheduled at or before deadline, then advances
// time to deadline even if no event lands exactly there.
func (v *Virtual) RunUntil(deadline time.Duration) {
	for v.pq.Len() > 0 && v.pq[0].at <= deadline {
		v.Step()
	}
	if v.now < deadline {
		v.now = deadline
	}
}

type event struct {
	at  time.Duration
	seq uint64
	fn  func()
}

// eventQueue orders events by (deadline, scheduling sequence).
type eventQueue []event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
