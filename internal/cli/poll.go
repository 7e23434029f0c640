package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/bus"
)

var (
	pollAddr  string
	pollBus   string
	pollStart uint64
	pollMax   int
	pollKinds []string
)

func init() {
	rootCmd.AddCommand(pollCmd)
	addClientFlags(pollCmd, &pollAddr, &pollBus)
	pollCmd.Flags().Uint64Var(&pollStart, "start", 0, "First log position to read")
	pollCmd.Flags().IntVar(&pollMax, "max", 0, "Maximum entries to return (0 for all)")
	pollCmd.Flags().StringSliceVar(&pollKinds, "kind", nil, "Payload kinds to keep (repeatable; empty for all)")
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Read entries from the bus",
	Long:  "Reads entries at or after --start in log order and prints one JSON\nobject per line. The trailing 'complete' line reports whether the read\nreached the end of the log.",
	RunE:  runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	client, err := dialClient(pollAddr, pollBus)
	if err != nil {
		return err
	}
	defer client.Close()

	kinds := make([]bus.Kind, 0, len(pollKinds))
	for _, k := range pollKinds {
		kinds = append(kinds, bus.Kind(k))
	}

	entries, complete, err := client.Poll(cmd.Context(), bus.Position(pollStart), pollMax, kinds...)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	for _, e := range entries {
		line, err := json.Marshal(struct {
			Position bus.Position `json:"position"`
			Kind     bus.Kind     `json:"kind"`
			Payload  bus.Payload  `json:"payload"`
		}{e.Position, e.Payload.Kind(), e.Payload})
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", e.Position, err)
		}
		fmt.Println(string(line))
	}
	fmt.Fprintf(os.Stderr, "complete: %v\n", complete)
	return nil
}
