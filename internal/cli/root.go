package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentbus",
	Short: "Durable ordered event bus for AI agent tool calls",
	Long:  "A total-order append-only log that agents write their tool-call intentions to,\nand a decider fleet that commits or aborts them. Agents act only on commit;\nno decision means no action.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
