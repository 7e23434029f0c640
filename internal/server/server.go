// Package server exposes the bus service over gRPC: Propose assigns
// positions, Poll reads position-addressed windows. The server has no fatal
// failure mode by design: every well-formed call succeeds against a log,
// even a newly materialized empty one.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/ppiankov/agentbus/internal/audit"
	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/store"
	"github.com/ppiankov/agentbus/internal/wire"
)

// Config holds bus server configuration.
type Config struct {
	Addr         string // listen address, e.g. ":50061"
	DBPath       string // sqlite database path; empty means in-memory
	AuditLogPath string // hash-chained JSONL mirror; empty disables it
	Logger       zerolog.Logger
}

// Server implements the agentbus.v1.BusService gRPC server over a Store.
type Server struct {
	st       store.Store
	auditLog *audit.Log
	log      zerolog.Logger
	cfg      Config

	grpcServer *grpc.Server
}

// New creates a server with the configured store and optional audit mirror.
func New(cfg Config) (*Server, error) {
	var st store.Store
	if cfg.DBPath != "" {
		sq, err := store.OpenSQL(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		st = sq
	} else {
		st = store.NewMemStore()
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		var err error
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	s := &Server{
		st:         st,
		auditLog:   auditLog,
		log:        cfg.Logger,
		cfg:        cfg,
		grpcServer: grpc.NewServer(),
	}

	wire.RegisterBusServiceServer(s.grpcServer, s)
	return s, nil
}

// Serve starts the gRPC server on the configured address. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Close releases the store and audit log.
func (s *Server) Close() error {
	if s.auditLog != nil {
		if err := s.auditLog.Close(); err != nil {
			s.st.Close()
			return err
		}
	}
	return s.st.Close()
}

// Propose implements the Propose RPC.
func (s *Server) Propose(ctx context.Context, req *wire.ProposeRequest) (*wire.ProposeResponse, error) {
	p, err := bus.DecodePayload(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	pos, err := s.st.Append(ctx, req.AgentBusID, p)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	s.recordAudit(req.AgentBusID, pos, p)
	s.log.Debug().
		Str("bus", req.AgentBusID).
		Uint64("position", uint64(pos)).
		Str("kind", string(p.Kind())).
		Msg("appended")

	return &wire.ProposeResponse{LogPosition: uint64(pos)}, nil
}

// Poll implements the Poll RPC.
func (s *Server) Poll(ctx context.Context, req *wire.PollRequest) (*wire.PollResponse, error) {
	var kinds []bus.Kind
	if req.Filter != nil {
		kinds = make([]bus.Kind, len(req.Filter.PayloadTypes))
		for i, t := range req.Filter.PayloadTypes {
			kinds[i] = bus.Kind(t)
		}
	}

	entries, complete, err := s.st.Read(ctx, req.AgentBusID, bus.Position(req.StartLogPosition), int(req.MaxEntries), kinds)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}

	resp := &wire.PollResponse{
		Entries:  make([]wire.Entry, len(entries)),
		Complete: complete,
	}
	for i, e := range entries {
		raw, err := bus.EncodePayload(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("poll: entry %d: %w", e.Position, err)
		}
		resp.Entries[i] = wire.Entry{Position: uint64(e.Position), Payload: raw}
	}
	return resp, nil
}

// recordAudit mirrors an append into the hash-chained JSONL log. Mirror
// failures are logged, never surfaced: the log store already accepted the
// entry.
func (s *Server) recordAudit(busID string, pos bus.Position, p bus.Payload) {
	if s.auditLog == nil {
		return
	}

	entry := audit.Entry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		BusID:     busID,
		Position:  uint64(pos),
		Kind:      string(p.Kind()),
	}
	if id, _, ok := bus.DecisionRef(p); ok {
		entry.IntentionID = uint64(id)
	}
	switch d := p.(type) {
	case bus.Commit:
		entry.Reason = d.Reason
	case bus.Abort:
		entry.Reason = d.Reason
	case bus.ActionOutput:
		entry.IntentionID = uint64(d.IntentionID)
	}

	if err := s.auditLog.Record(entry); err != nil {
		s.log.Warn().Err(err).Str("bus", busID).Uint64("position", uint64(pos)).Msg("audit mirror write failed")
	}
}
