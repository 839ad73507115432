package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var (
		policy   string
		script   string
		maxTicks int
		timeline bool
	)

	cmd := &cobra.Command{
		Use:   "submit <workload.yaml>",
		Short: "Simulate a workload on a schedsim server",
		Long: `Submit sends the workload to the server given by --server, which runs
the simulation and stores the result. The run summary is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read workload: %w", err)
			}

			q := url.Values{}
			q.Set("policy", policy)
			if script != "" {
				q.Set("script", script)
			}
			if maxTicks > 0 {
				q.Set("max_ticks", strconv.Itoa(maxTicks))
			}

			run, err := client.Simulate(cmd.Context(), data, q)
			if err != nil {
				return fmt.Errorf("submit workload: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			if timeline {
				fmt.Fprintln(out)
				printTimeline(out, run)
			}
			printSummary(out, run)
			if run.Error != "" {
				return fmt.Errorf("run %s failed: %s", run.ID, run.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&policy, "policy", "p", "fcfs", "Scheduling policy")
	cmd.Flags().StringVar(&script, "script", "", "Key expression for --policy script")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Tick limit (server default when 0)")
	cmd.Flags().BoolVar(&timeline, "timeline", false, "Also print the per-tick timeline")
	return cmd
}
