package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/logging"
	busmcp "github.com/ppiankov/agentbus/internal/mcp"
)

var (
	mcpAddr     string
	mcpBus      string
	mcpInterval time.Duration
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	addClientFlags(mcpCmd, &mcpAddr, &mcpBus)
	mcpCmd.Flags().DurationVar(&mcpInterval, "interval", 500*time.Millisecond, "Decision poll interval")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs an MCP (Model Context Protocol) server over stdio, bridging to a\nbus server. Exposes tools: propose, wait_decision, log_output,\nlog_inference, set_policy, poll.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := busmcp.Config{
		Addr:         mcpAddr,
		BusID:        mcpBus,
		PollInterval: mcpInterval,
		Version:      version,
		Logger:       logging.New("agentbus-mcp"),
	}

	srv, err := busmcp.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "agentbus MCP server running on stdio (bus %q via %s)\n", mcpBus, mcpAddr)
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
