package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/schedsim/internal/config"
	"github.com/me/schedsim/pkg/model"
)

func newRunsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs stored in the local database",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "Run database path")

	cmd.AddCommand(
		newRunsListCmd(&dbPath),
		newRunsShowCmd(&dbPath),
		newRunsDeleteCmd(&dbPath),
	)
	return cmd
}

func newRunsListCmd(dbPath *string) *cobra.Command {
	opts := model.DefaultListOptions()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			opts.Clamp()
			runs, total, err := st.ListRuns(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found.")
				return nil
			}

			fmt.Fprintf(out, "%-40s  %-6s  %-20s  %6s  %-9s  %s\n", "ID", "POLICY", "WORKLOAD", "TICKS", "COMPLETED", "CREATED")
			fmt.Fprintf(out, "%-40s  %-6s  %-20s  %6s  %-9s  %s\n", "--", "------", "--------", "-----", "---------", "-------")
			for _, r := range runs {
				fmt.Fprintf(out, "%-40s  %-6s  %-20s  %6d  %-9t  %s\n",
					r.ID, r.Policy, r.Workload, r.Ticks, r.Completed, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}

			if opts.Page(len(runs), total).HasMore {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(runs), total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", opts.Limit, "Maximum number of runs to show")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of runs to skip")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "Only show runs of this policy")
	return cmd
}

func newRunsShowCmd(dbPath *string) *cobra.Command {
	var timeline bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			if run == nil {
				return model.NewNotFoundError("run", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Created:   %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			if timeline {
				fmt.Fprintln(out)
				printTimeline(out, run)
			}
			printSummary(out, run)
			return nil
		},
	}

	cmd.Flags().BoolVar(&timeline, "timeline", false, "Also print the per-tick timeline")
	return cmd
}

func newRunsDeleteCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete run: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
