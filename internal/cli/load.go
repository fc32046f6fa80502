package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drone/drone-qops/ingest"
	"github.com/drone/drone-qops/loadmetrics"
)

func newLoadCommand(opts *globalOptions) *cobra.Command {
	meta := &metaFlags{}
	var strict bool

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Ingest a JSON load-test summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read load summary: %w", err)
			}

			payload, err := loadmetrics.Decode(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			payload.ProjectID, err = projectID(ctx, st, cfg, meta.project, true)
			if err != nil {
				return err
			}
			applyMeta(payload, meta)

			policy := loadmetrics.Policy{
				StrictOrdering:       strict || cfg.StrictMetrics,
				FailureRateTolerance: cfg.FailureRateTolerance,
			}
			id, rec, err := ingest.NewCoordinator(st, policy).IngestLoad(ctx, payload)
			if violations := loadmetrics.Violations(err); len(violations) > 0 {
				for _, v := range violations {
					logrus.WithField("Field", v.Field).Error(v.Reason)
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("ingest load summary: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Load run #%d %s: %d requests, %.2f%% failed, p95 %.1f ms, %.1f req/s\n",
				id, rec.Name, rec.TotalRequests, rec.FailureRate, rec.P95ResponseTime, rec.RequestsPerSecond)
			return nil
		},
	}

	meta.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "also check percentile ordering and failure rate consistency")
	return cmd
}

// applyMeta lets flags override metadata from the summary file.
func applyMeta(p *loadmetrics.Payload, m *metaFlags) {
	if m.name != "" {
		p.Name = m.name
	}
	if m.environment != "" {
		p.Environment = m.environment
	}
	if m.build != "" {
		p.Build = m.build
	}
	if m.branch != "" {
		p.Branch = m.branch
	}
	if m.triggeredBy != "" {
		p.TriggeredBy = m.triggeredBy
	}
}
