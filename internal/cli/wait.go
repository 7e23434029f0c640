package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/bus"
)

var (
	waitAddr    string
	waitBus     string
	waitTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(waitCmd)
	addClientFlags(waitCmd, &waitAddr, &waitBus)
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "How long to wait before failing closed")
}

var waitCmd = &cobra.Command{
	Use:   "wait <position>",
	Short: "Wait for a decision on an intention",
	Long:  "Blocks until a commit or abort referencing the intention at the given\nlog position appears. Exits 0 on commit, 1 on abort. If the timeout\nexpires without a decision the intention is treated as aborted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWait,
}

func runWait(cmd *cobra.Command, args []string) error {
	var pos uint64
	if _, err := fmt.Sscanf(args[0], "%d", &pos); err != nil {
		return fmt.Errorf("invalid position %q: %w", args[0], err)
	}

	client, err := dialClient(waitAddr, waitBus)
	if err != nil {
		return err
	}
	defer client.Close()

	d := client.WaitForDecision(cmd.Context(), bus.Position(pos), waitTimeout)
	if d.Approved {
		fmt.Printf("committed: %s\n", d.Reason)
		return nil
	}
	return fmt.Errorf("aborted: %s", d.Reason)
}
