package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/schedsim/internal/sched"
)

func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List the available scheduling policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reg := sched.NewDefaultRegistry(logger)

			fmt.Fprintf(out, "%-8s  %s\n", "NAME", "DESCRIPTION")
			fmt.Fprintf(out, "%-8s  %s\n", "----", "-----------")
			for _, name := range reg.Names() {
				p, err := reg.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-8s  %s\n", name, p.Name())
			}
			fmt.Fprintf(out, "%-8s  %s\n", scriptPolicy, "Scripted key (--script EXPR, smaller runs first)")
			return nil
		},
	}
}
