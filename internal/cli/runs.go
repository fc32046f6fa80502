package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsCommand(opts *globalOptions) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the test runs of a project, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			pid, err := projectID(ctx, st, cfg, project, false)
			if err != nil {
				return err
			}
			runs, err := st.ListRuns(ctx, pid)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tTOTAL\tPASSED\tFAILED\tSKIPPED\tENV\tBRANCH\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
					r.ID, r.Meta.Name, r.Summary.Status, r.Summary.Total, r.Summary.Passed,
					r.Summary.Failed, r.Summary.Skipped, dash(r.Meta.Environment), dash(r.Meta.Branch),
					r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project name")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
