package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/logging"
	"github.com/ppiankov/agentbus/sdk/go/agentbus"
)

const (
	defaultAddr = "127.0.0.1:50061"
	defaultBus  = "default"
)

// envOr reads an environment variable with a fallback, so interactive use
// does not need --server and --bus on every invocation.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// addClientFlags registers the connection flags shared by every command
// that talks to a running bus server.
func addClientFlags(cmd *cobra.Command, addr, busID *string) {
	cmd.Flags().StringVar(addr, "server", envOr("AGENTBUS_ADDR", defaultAddr), "Bus server address (env AGENTBUS_ADDR)")
	cmd.Flags().StringVar(busID, "bus", envOr("AGENTBUS_BUS", defaultBus), "Bus id to operate on (env AGENTBUS_BUS)")
}

func dialClient(addr, busID string) (*agentbus.Client, error) {
	c, err := agentbus.Dial(addr,
		agentbus.WithBusID(busID),
		agentbus.WithLogger(logging.New("agentbus")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return c, nil
}
