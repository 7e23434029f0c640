package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/agentbus/internal/bus"
)

// backends enumerates the Store implementations under test so every
// property holds for both.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQL(filepath.Join(t.TempDir(), "bus.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemStore(),
		"sqlite": sq,
	}
}

func TestAppendAssignsGaplessPositions(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				pos, err := st.Append(ctx, "b", bus.Intention{Content: fmt.Sprintf("step %d", i)})
				if err != nil {
					t.Fatalf("append %d: %v", i, err)
				}
				if pos != bus.Position(i) {
					t.Fatalf("append %d: got position %d", i, pos)
				}
			}

			entries, complete, err := st.Read(ctx, "b", 0, 0, nil)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !complete {
				t.Error("expected complete read")
			}
			if len(entries) != 5 {
				t.Fatalf("got %d entries, want 5", len(entries))
			}
			for i, e := range entries {
				if e.Position != bus.Position(i) {
					t.Errorf("entry %d has position %d", i, e.Position)
				}
				in, ok := e.Payload.(bus.Intention)
				if !ok {
					t.Fatalf("entry %d payload is %T", i, e.Payload)
				}
				if want := fmt.Sprintf("step %d", i); in.Content != want {
					t.Errorf("entry %d content %q, want %q", i, in.Content, want)
				}
			}
		})
	}
}

func TestBusesAreIndependent(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := st.Append(ctx, "a", bus.Intention{Content: "on a"}); err != nil {
				t.Fatalf("append: %v", err)
			}
			pos, err := st.Append(ctx, "b", bus.Intention{Content: "on b"})
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			if pos != 0 {
				t.Fatalf("first entry on bus b got position %d", pos)
			}

			entries, complete, err := st.Read(ctx, "never-written", 0, 0, nil)
			if err != nil {
				t.Fatalf("read unknown bus: %v", err)
			}
			if len(entries) != 0 || !complete {
				t.Fatalf("unknown bus: got %d entries, complete=%v; want empty and complete", len(entries), complete)
			}
		})
	}
}

func TestConcurrentAppendersKeepTotalOrder(t *testing.T) {
	const (
		writers       = 8
		perWriter     = 25
		totalExpected = writers * perWriter
	)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			errCh := make(chan error, writers)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						if _, err := st.Append(ctx, "shared", bus.Intention{Content: fmt.Sprintf("w%d-%d", w, i)}); err != nil {
							errCh <- err
							return
						}
					}
				}(w)
			}
			wg.Wait()
			close(errCh)
			for err := range errCh {
				t.Fatalf("concurrent append: %v", err)
			}

			entries, complete, err := st.Read(ctx, "shared", 0, 0, nil)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !complete || len(entries) != totalExpected {
				t.Fatalf("got %d entries, complete=%v; want %d complete", len(entries), complete, totalExpected)
			}
			seen := make(map[bus.Position]bool, totalExpected)
			for i, e := range entries {
				if e.Position != bus.Position(i) {
					t.Fatalf("entry %d has position %d: order or gap violation", i, e.Position)
				}
				if seen[e.Position] {
					t.Fatalf("duplicate position %d", e.Position)
				}
				seen[e.Position] = true
			}
		})
	}
}

func TestReadStartAndMax(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 6; i++ {
				if _, err := st.Append(ctx, "b", bus.Intention{Content: fmt.Sprintf("%d", i)}); err != nil {
					t.Fatalf("append: %v", err)
				}
			}

			entries, complete, err := st.Read(ctx, "b", 2, 0, nil)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 4 || !complete || entries[0].Position != 2 {
				t.Fatalf("start=2: got %d entries from %d, complete=%v", len(entries), entries[0].Position, complete)
			}

			entries, complete, err = st.Read(ctx, "b", 0, 4, nil)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 4 || complete {
				t.Fatalf("max=4: got %d entries, complete=%v; want 4 incomplete", len(entries), complete)
			}

			// Start past the end reads nothing and is still complete.
			entries, complete, err = st.Read(ctx, "b", 100, 0, nil)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 0 || !complete {
				t.Fatalf("start past end: got %d entries, complete=%v", len(entries), complete)
			}

			// A start beyond MaxInt64 would go negative under a signed
			// conversion; it must behave like any other past-the-end read.
			entries, complete, err = st.Read(ctx, "b", bus.Position(1)<<63, 0, nil)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 0 || !complete {
				t.Fatalf("huge start: got %d entries, complete=%v", len(entries), complete)
			}
		})
	}
}

func TestReadKindFilter(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seq := []bus.Payload{
				bus.Intention{Content: "a"},
				bus.Commit{IntentionID: 0, Reason: "ok"},
				bus.Intention{Content: "b"},
				bus.InferenceInput{Content: "thinking"},
				bus.Abort{IntentionID: 2, Reason: "no"},
				bus.Intention{Content: "c"},
			}
			for _, p := range seq {
				if _, err := st.Append(ctx, "b", p); err != nil {
					t.Fatalf("append: %v", err)
				}
			}

			entries, complete, err := st.Read(ctx, "b", 0, 0, []bus.Kind{bus.KindCommit, bus.KindAbort})
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !complete {
				t.Error("filtered read scanned the whole log; expected complete")
			}
			if len(entries) != 2 || entries[0].Position != 1 || entries[1].Position != 4 {
				t.Fatalf("decision filter: got %+v", entries)
			}

			// A max cap that leaves a matching entry behind reports incomplete.
			entries, complete, err = st.Read(ctx, "b", 0, 2, []bus.Kind{bus.KindIntention})
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 2 || complete {
				t.Fatalf("capped filter: got %d entries, complete=%v; want 2 incomplete", len(entries), complete)
			}

			// Trailing non-matching entries do not hide completion.
			entries, complete, err = st.Read(ctx, "b", 0, 3, []bus.Kind{bus.KindIntention})
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 3 || !complete {
				t.Fatalf("exact filter: got %d entries, complete=%v; want 3 complete", len(entries), complete)
			}

			// Kinds outside the union match nothing.
			entries, complete, err = st.Read(ctx, "b", 0, 0, []bus.Kind{bus.Kind("bogus")})
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != 0 || !complete {
				t.Fatalf("bogus kind: got %d entries, complete=%v", len(entries), complete)
			}
		})
	}
}
