package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCommand(opts *globalOptions) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the latest test and load results of a project",
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
			sum, err := st.Summary(ctx, pid)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", sum.ProjectName)
			if sum.LastRun == nil {
				fmt.Fprintln(out, "Last test run: none")
			} else {
				r := sum.LastRun
				fmt.Fprintf(out, "Last test run: #%d %s %s (total %d, passed %d, failed %d, skipped %d)\n",
					r.ID, r.Meta.Name, statusLabel(r.Summary.Status),
					r.Summary.Total, r.Summary.Passed, r.Summary.Failed, r.Summary.Skipped)
			}
			if sum.OverallPassRate != nil {
				fmt.Fprintf(out, "Pass rate: %.2f%%\n", *sum.OverallPassRate)
			} else {
				fmt.Fprintln(out, "Pass rate: n/a")
			}
			if sum.LastLoadRun == nil {
				fmt.Fprintln(out, "Last load run: none")
			} else {
				l := sum.LastLoadRun
				fmt.Fprintf(out, "Last load run: #%d %s (%d requests, %.2f%% failed)\n",
					l.ID, l.Name, l.TotalRequests, *sum.LastLoadFailureRate)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project name")
	return cmd
}
