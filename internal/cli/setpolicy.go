package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/bus"
)

var (
	setPolicyAddr string
	setPolicyBus  string
)

func init() {
	rootCmd.AddCommand(setPolicyCmd)
	addClientFlags(setPolicyCmd, &setPolicyAddr, &setPolicyBus)
}

var setPolicyCmd = &cobra.Command{
	Use:   "set-policy <policy>",
	Short: "Append a decider policy entry to the bus",
	Long:  "Appends a policy entry (ON_BY_DEFAULT, OFF_BY_DEFAULT, FIRST_BOOLEAN_WINS).\nDeciders apply it to intentions that follow it in the log; earlier\nintentions keep the policy that was in force when they were read.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetPolicy,
}

func runSetPolicy(cmd *cobra.Command, args []string) error {
	p, err := bus.ParsePolicy(args[0])
	if err != nil {
		return err
	}

	client, err := dialClient(setPolicyAddr, setPolicyBus)
	if err != nil {
		return err
	}
	defer client.Close()

	pos, err := client.SetDeciderPolicy(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("set policy: %w", err)
	}
	fmt.Printf("position: %d\n", pos)
	return nil
}
