package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/agentbus/sdk/go/agentbus"
)

// Config holds MCP server configuration.
type Config struct {
	Addr         string
	BusID        string
	PollInterval time.Duration
	Version      string
	Logger       zerolog.Logger
}

// Server exposes bus operations as MCP tools over stdio, so MCP-speaking
// agents can participate in a bus without linking the SDK.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *agentbus.Client
	log       zerolog.Logger
}

// New dials the bus server and builds an MCP server with all tools registered.
func New(cfg Config) (*Server, error) {
	opts := []agentbus.Option{agentbus.WithLogger(cfg.Logger)}
	if cfg.BusID != "" {
		opts = append(opts, agentbus.WithBusID(cfg.BusID))
	}
	if cfg.PollInterval > 0 {
		opts = append(opts, agentbus.WithPollInterval(cfg.PollInterval))
	}

	client, err := agentbus.Dial(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bus server: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		client: client,
		log:    cfg.Logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "agentbus",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close tears down the bus connection.
func (s *Server) Close() error {
	return s.client.Close()
}

// registerTools adds all bus tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bus_propose",
		Description: "Propose a tool-call intention to the bus. Returns the log position to wait on with bus_wait_decision.",
	}, s.handlePropose)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bus_wait_decision",
		Description: "Wait for a commit or abort decision on a previously proposed intention. Times out fail-closed (not approved).",
	}, s.handleWaitDecision)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bus_log_output",
		Description: "Record the observed output of a committed intention. Best-effort: never blocks the agent.",
	}, s.handleLogOutput)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bus_log_inference",
		Description: "Record an inference input or output for observability. Best-effort: never blocks the agent.",
	}, s.handleLogInference)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bus_set_policy",
		Description: "Append a decider policy entry (ON_BY_DEFAULT, OFF_BY_DEFAULT, FIRST_BOOLEAN_WINS) to the bus.",
	}, s.handleSetPolicy)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bus_poll",
		Description: "Read bus entries from a start position, optionally filtered by kind.",
	}, s.handlePoll)
}
