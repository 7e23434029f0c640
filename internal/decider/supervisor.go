package decider

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/conn"
)

// BusMap is the YAML schema for a supervised decider fleet: bus id to
// policy name.
type BusMap struct {
	Buses map[string]string `yaml:"buses"`
}

// LoadBusMap parses and validates a bus map file.
func LoadBusMap(path string) (map[string]bus.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bus map: %w", err)
	}
	var bm BusMap
	if err := yaml.Unmarshal(raw, &bm); err != nil {
		return nil, fmt.Errorf("parse bus map: %w", err)
	}

	out := make(map[string]bus.Policy, len(bm.Buses))
	for id, name := range bm.Buses {
		p, err := bus.ParsePolicy(name)
		if err != nil {
			return nil, fmt.Errorf("bus %q: %w", id, err)
		}
		out[id] = p
	}
	return out, nil
}

// Supervisor runs one decider per bus listed in a bus map file and
// hot-reloads the file: deciders are started for new buses, stopped for
// removed ones, and restarted on policy changes. A restarted decider
// replays the log, so no decisions are lost across a swap.
type Supervisor struct {
	cn       conn.Conn
	sched    clock.Scheduler
	interval time.Duration
	path     string
	log      zerolog.Logger

	mu     sync.Mutex
	active map[string]supervised
}

type supervised struct {
	dec    *Decider
	policy bus.Policy
}

// NewSupervisor creates a supervisor over the bus map at path.
func NewSupervisor(cn conn.Conn, sched clock.Scheduler, path string, interval time.Duration, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		cn:       cn,
		sched:    sched,
		interval: interval,
		path:     path,
		log:      log,
		active:   make(map[string]supervised),
	}
}

// Reload applies the current bus map file to the running fleet.
func (s *Supervisor) Reload() error {
	want, err := LoadBusMap(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cur := range s.active {
		policy, keep := want[id]
		if keep && policy == cur.policy {
			continue
		}
		cur.dec.Stop()
		delete(s.active, id)
		s.log.Info().Str("bus", id).Msg("decider stopped")
	}

	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids) // stable start order for logs and simulation

	for _, id := range ids {
		if _, ok := s.active[id]; ok {
			continue
		}
		d := New(s.cn, s.sched, Config{
			BusID:    id,
			Policy:   want[id],
			Interval: s.interval,
			Logger:   s.log,
		})
		d.Start()
		s.active[id] = supervised{dec: d, policy: want[id]}
	}
	return nil
}

// Run loads the bus map, then watches it for changes until ctx is
// cancelled. Changes are debounced: the file is re-applied half a second
// after the last write.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.path); err != nil {
		return fmt.Errorf("watch %q: %w", s.path, err)
	}

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			s.stopAll()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				s.stopAll()
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := s.Reload(); err != nil {
						s.log.Warn().Err(err).Msg("bus map reload failed")
					} else {
						s.log.Info().Str("path", s.path).Msg("bus map reloaded")
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				s.stopAll()
				return nil
			}
			s.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cur := range s.active {
		cur.dec.Stop()
		delete(s.active, id)
	}
}
