package decider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/conn"
	"github.com/ppiankov/agentbus/internal/store"
)

func writeBusMap(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write bus map: %v", err)
	}
}

func TestLoadBusMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buses.yaml")
	writeBusMap(t, path, "buses:\n  prod: ON_BY_DEFAULT\n  staging: FIRST_BOOLEAN_WINS\n")

	got, err := LoadBusMap(path)
	if err != nil {
		t.Fatalf("LoadBusMap: %v", err)
	}
	if len(got) != 2 || got["prod"] != bus.OnByDefault || got["staging"] != bus.FirstBooleanWins {
		t.Fatalf("LoadBusMap = %v", got)
	}
}

func TestLoadBusMapRejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buses.yaml")
	writeBusMap(t, path, "buses:\n  prod: SOMETIMES\n")

	if _, err := LoadBusMap(path); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestSupervisorReloadSwapsFleet(t *testing.T) {
	ctx := context.Background()
	cn := conn.NewLocal(store.NewMemStore())
	clk := clock.NewVirtual(1)
	path := filepath.Join(t.TempDir(), "buses.yaml")
	writeBusMap(t, path, "buses:\n  alpha: ON_BY_DEFAULT\n  beta: OFF_BY_DEFAULT\n")

	sup := NewSupervisor(cn, clk, path, 50*time.Millisecond, zerolog.Nop())
	if err := sup.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if _, err := cn.Propose(ctx, "alpha", bus.Intention{Content: "a"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := cn.Propose(ctx, "beta", bus.Intention{Content: "b"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	clk.RunUntil(100 * time.Millisecond)

	alpha, _, err := cn.Poll(ctx, "alpha", 0, 0, []bus.Kind{bus.KindCommit})
	if err != nil {
		t.Fatalf("poll alpha: %v", err)
	}
	if len(alpha) != 1 {
		t.Fatalf("alpha commits = %d, want 1", len(alpha))
	}
	beta, _, err := cn.Poll(ctx, "beta", 0, 0, []bus.Kind{bus.KindAbort})
	if err != nil {
		t.Fatalf("poll beta: %v", err)
	}
	if len(beta) != 1 {
		t.Fatalf("beta aborts = %d, want 1", len(beta))
	}

	// Drop beta and flip alpha to OFF; the alpha decider restarts with the
	// new policy and beta stops getting decisions.
	writeBusMap(t, path, "buses:\n  alpha: OFF_BY_DEFAULT\n")
	if err := sup.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if _, err := cn.Propose(ctx, "alpha", bus.Intention{Content: "a2"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := cn.Propose(ctx, "beta", bus.Intention{Content: "b2"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	clk.RunUntil(300 * time.Millisecond)

	aborts, _, err := cn.Poll(ctx, "alpha", 0, 0, []bus.Kind{bus.KindAbort})
	if err != nil {
		t.Fatalf("poll alpha: %v", err)
	}
	if len(aborts) != 1 {
		t.Fatalf("alpha aborts after flip = %d, want 1", len(aborts))
	}
	betaAll, _, err := cn.Poll(ctx, "beta", 0, 0, nil)
	if err != nil {
		t.Fatalf("poll beta: %v", err)
	}
	// intention, abort, second intention; no decision for the second.
	if len(betaAll) != 3 {
		t.Fatalf("beta log length = %d, want 3", len(betaAll))
	}
}
