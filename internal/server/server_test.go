package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/internal/audit"
	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/wire"
)

// startServer runs a server on a loopback port and returns a connected
// wire client.
func startServer(t *testing.T, cfg Config) *wire.Client {
	t.Helper()
	cfg.Logger = zerolog.Nop()

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.ServeOn(lis)
	t.Cleanup(func() {
		srv.GracefulStop()
		srv.Close()
	})

	client, err := wire.Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestProposeAndPollOverGRPC(t *testing.T) {
	client := startServer(t, Config{})
	ctx := context.Background()

	pos, err := client.Propose(ctx, "b", bus.Intention{Content: "echo hi"})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if pos != 0 {
		t.Fatalf("first position = %d", pos)
	}
	if _, err := client.Propose(ctx, "b", bus.Commit{IntentionID: pos, Reason: "ok"}); err != nil {
		t.Fatalf("propose commit: %v", err)
	}

	entries, complete, err := client.Poll(ctx, "b", 0, 0, nil)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !complete || len(entries) != 2 {
		t.Fatalf("got %d entries, complete=%v", len(entries), complete)
	}
	in, ok := entries[0].Payload.(bus.Intention)
	if !ok || in.Content != "echo hi" {
		t.Fatalf("entry 0 = %#v", entries[0].Payload)
	}

	// Filtered poll round-trips the filter over the wire.
	entries, complete, err = client.Poll(ctx, "b", 0, 0, []bus.Kind{bus.KindCommit})
	if err != nil {
		t.Fatalf("filtered poll: %v", err)
	}
	if !complete || len(entries) != 1 || entries[0].Position != 1 {
		t.Fatalf("filtered poll: %d entries, complete=%v", len(entries), complete)
	}
}

func TestBusesIsolatedOverGRPC(t *testing.T) {
	client := startServer(t, Config{})
	ctx := context.Background()

	if _, err := client.Propose(ctx, "a", bus.Intention{Content: "on a"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	entries, complete, err := client.Poll(ctx, "other", 0, 0, nil)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(entries) != 0 || !complete {
		t.Fatalf("unknown bus leaked: %d entries, complete=%v", len(entries), complete)
	}
}

func TestServerDurableStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "bus.db")
	ctx := context.Background()

	client := startServer(t, Config{DBPath: dbPath})
	if _, err := client.Propose(ctx, "b", bus.Intention{Content: "persist me"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	client.Close()

	// A second server over the same database sees the entry.
	client2 := startServer(t, Config{DBPath: dbPath})
	entries, _, err := client2.Poll(ctx, "b", 0, 0, nil)
	if err != nil {
		t.Fatalf("poll after restart: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries after restart", len(entries))
	}
}

func TestServerAuditMirror(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.jsonl")
	ctx := context.Background()

	client := startServer(t, Config{AuditLogPath: logPath})
	if _, err := client.Propose(ctx, "b", bus.Intention{Content: "watched"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := client.Propose(ctx, "b", bus.Abort{IntentionID: 0, Reason: "no"}); err != nil {
		t.Fatalf("propose: %v", err)
	}

	result := audit.Verify(logPath)
	if !result.Valid {
		t.Fatalf("audit chain invalid: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 2 {
		t.Fatalf("audit lines = %d, want 2", result.Lines)
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := "addr: \":60061\"\ndb: /tmp/bus.db\naudit_log: /tmp/audit.jsonl\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":60061" || cfg.DB != "/tmp/bus.db" || cfg.AuditLog != "/tmp/audit.jsonl" {
		t.Fatalf("cfg = %+v", cfg)
	}

	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
