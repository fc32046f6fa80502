package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drone/drone-qops/ingest"
	"github.com/drone/drone-qops/loadmetrics"
	"github.com/drone/drone-qops/report"
)

func newReportCommand(opts *globalOptions) *cobra.Command {
	meta := &metaFlags{}

	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Ingest a JUnit XML report as a test run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}

			run, err := ingest.BuildRun(data, ingest.RunMeta{
				Name:        meta.name,
				Environment: meta.environment,
				Build:       meta.build,
				Branch:      meta.branch,
				TriggeredBy: meta.triggeredBy,
			})
			var malformed *report.MalformedReportError
			if errors.As(err, &malformed) {
				logrus.WithError(err).WithField("File", args[0]).Error("Report is not valid XML")
				return err
			}
			if err != nil {
				return fmt.Errorf("parse report: %w", err)
			}

			cfg, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			run.Meta.ProjectID, err = projectID(ctx, st, cfg, meta.project, true)
			if err != nil {
				return err
			}

			coord := ingest.NewCoordinator(st, loadmetrics.Policy{})
			id, err := coord.SubmitRun(ctx, run)
			if err != nil {
				return fmt.Errorf("ingest report: %w", err)
			}

			s := run.Summary
			fmt.Fprintf(cmd.OutOrStdout(), "Run #%d %s: %s (total %d, passed %d, failed %d, skipped %d)\n",
				id, run.Meta.Name, statusLabel(s.Status), s.Total, s.Passed, s.Failed, s.Skipped)
			return nil
		},
	}

	meta.register(cmd)
	return cmd
}
