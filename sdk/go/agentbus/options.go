package agentbus

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/clock"
)

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	busID    string
	interval time.Duration
	logger   zerolog.Logger
	sched    clock.Scheduler
}

// WithBusID sets the bus this client writes to. Defaults to "default".
func WithBusID(id string) Option {
	return func(c *clientConfig) { c.busID = id }
}

// WithPollInterval sets the fixed interval WaitForDecision polls at.
// Decision latency is bounded by it. Defaults to 500ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.interval = d }
}

// WithLogger sets the logger for fire-and-forget write failures.
// Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithScheduler overrides the clock the decision watch runs on. Defaults
// to wall time; tests pass a virtual clock.
func WithScheduler(s clock.Scheduler) Option {
	return func(c *clientConfig) { c.sched = s }
}
