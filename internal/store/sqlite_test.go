package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ppiankov/agentbus/internal/bus"
)

func TestSQLStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bus.db")

	st, err := OpenSQL(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := st.Append(ctx, "b", bus.Intention{Content: "durable"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.Append(ctx, "b", bus.Commit{IntentionID: 0, Reason: "ok"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = OpenSQL(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	entries, complete, err := st.Read(ctx, "b", 0, 0, nil)
	if err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
	if !complete || len(entries) != 2 {
		t.Fatalf("got %d entries, complete=%v; want 2 complete", len(entries), complete)
	}
	if in, ok := entries[0].Payload.(bus.Intention); !ok || in.Content != "durable" {
		t.Fatalf("entry 0 = %#v", entries[0].Payload)
	}

	// Position assignment continues where the previous process stopped.
	pos, err := st.Append(ctx, "b", bus.Intention{Content: "next"})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if pos != 2 {
		t.Fatalf("append after reopen assigned position %d, want 2", pos)
	}
}
