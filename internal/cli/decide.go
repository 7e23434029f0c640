package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/bus"
	"github.com/ppiankov/agentbus/internal/clock"
	"github.com/ppiankov/agentbus/internal/decider"
	"github.com/ppiankov/agentbus/internal/logging"
	"github.com/ppiankov/agentbus/internal/wire"
)

var (
	decideAddr     string
	decideBus      string
	decidePolicy   string
	decideBuses    string
	decideInterval time.Duration
)

func init() {
	rootCmd.AddCommand(decideCmd)
	addClientFlags(decideCmd, &decideAddr, &decideBus)
	decideCmd.Flags().StringVar(&decidePolicy, "policy", string(bus.OffByDefault), "Starting policy for the bus")
	decideCmd.Flags().StringVar(&decideBuses, "buses", "", "Path to bus map YAML; runs one decider per listed bus with hot reload")
	decideCmd.Flags().DurationVar(&decideInterval, "interval", 500*time.Millisecond, "Poll interval")
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run a decider against a bus server",
	Long:  "Polls the bus for undecided intentions and appends commit or abort\nentries per the active policy. With --buses a YAML map of bus id to\npolicy drives a fleet of deciders, restarted on file change.",
	RunE:  runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
	log := logging.New("agentbus-decider")

	cn, err := wire.Dial(decideAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", decideAddr, err)
	}
	defer cn.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down decider...")
		cancel()
	}()

	if decideBuses != "" {
		sup := decider.NewSupervisor(cn, clock.NewWall(), decideBuses, decideInterval, log)
		fmt.Fprintf(os.Stderr, "agentbus decider fleet from %s (hot reload)\n", decideBuses)
		return sup.Run(ctx)
	}

	policy, err := bus.ParsePolicy(decidePolicy)
	if err != nil {
		return err
	}

	d := decider.New(cn, clock.NewWall(), decider.Config{
		BusID:    decideBus,
		Policy:   policy,
		Interval: decideInterval,
		Logger:   log,
	})
	d.Start()
	defer d.Stop()

	fmt.Fprintf(os.Stderr, "agentbus decider on bus %q, policy %s\n", decideBus, policy)
	<-ctx.Done()
	return nil
}
