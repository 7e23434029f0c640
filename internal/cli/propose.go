package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	proposeAddr string
	proposeBus  string
	proposeWait time.Duration
)

func init() {
	rootCmd.AddCommand(proposeCmd)
	addClientFlags(proposeCmd, &proposeAddr, &proposeBus)
	proposeCmd.Flags().DurationVar(&proposeWait, "wait", 0, "Block until a decision arrives (or fail closed after this duration)")
}

var proposeCmd = &cobra.Command{
	Use:   "propose <content...>",
	Short: "Propose a tool-call intention",
	Long:  "Appends an intention to the bus and prints its log position.\nWith --wait the command also blocks for the commit/abort decision\nand exits 0 on commit, 1 on abort or timeout.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPropose,
}

func runPropose(cmd *cobra.Command, args []string) error {
	client, err := dialClient(proposeAddr, proposeBus)
	if err != nil {
		return err
	}
	defer client.Close()

	content := strings.Join(args, " ")
	pos, err := client.LogIntention(cmd.Context(), content)
	if err != nil {
		return fmt.Errorf("propose: %w", err)
	}
	fmt.Printf("position: %d\n", pos)

	if proposeWait <= 0 {
		return nil
	}

	d := client.WaitForDecision(cmd.Context(), pos, proposeWait)
	if d.Approved {
		fmt.Printf("committed: %s\n", d.Reason)
		return nil
	}
	return fmt.Errorf("aborted: %s", d.Reason)
}
