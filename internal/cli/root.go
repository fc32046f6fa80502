// Package cli implements the qops command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drone/drone-qops/internal/config"
	"github.com/drone/drone-qops/report"
	"github.com/drone/drone-qops/store"
)

// Version is injected at build time via -ldflags
var Version = "dev"

type globalOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

// NewRootCommand creates and returns the root cobra command for qops
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "qops",
		Short: "Ingest test reports and load-test summaries",
		Long: `qops stores JUnit-compatible test reports and load-test summaries
per project and reports the derived run status and rates.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to the config file")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")

	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newRunsCommand(opts))
	cmd.AddCommand(newSummaryCommand(opts))

	return cmd
}

// load reads the config file, applies flag overrides and configures logging.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)
	return cfg, nil
}

func (o *globalOptions) openStore() (*config.Config, *store.Store, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, st, nil
}

// projectID resolves the project flag, falling back to the configured
// default. Ingesting commands create the project on first use.
func projectID(ctx context.Context, st *store.Store, cfg *config.Config, name string, create bool) (int64, error) {
	if name == "" {
		name = cfg.DefaultProject
	}
	if name == "" {
		return 0, errors.New("no project given: use --project or set default_project")
	}
	if create {
		return st.EnsureProject(ctx, name)
	}
	return st.FindProject(ctx, name)
}

type metaFlags struct {
	project     string
	name        string
	environment string
	build       string
	branch      string
	triggeredBy string
}

func (m *metaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&m.project, "project", "p", "", "project name")
	cmd.Flags().StringVar(&m.name, "name", "", "run name")
	cmd.Flags().StringVar(&m.environment, "env", "", "environment the run targeted")
	cmd.Flags().StringVar(&m.build, "build", "", "build identifier")
	cmd.Flags().StringVar(&m.branch, "branch", "", "source branch")
	cmd.Flags().StringVar(&m.triggeredBy, "triggered-by", "", "what triggered the run")
}

func statusLabel(status report.RunStatus) string {
	switch status {
	case report.RunPassed:
		return color.New(color.FgGreen, color.Bold).Sprint(string(status))
	case report.RunFailed:
		return color.New(color.FgRed, color.Bold).Sprint(string(status))
	default:
		return color.New(color.FgYellow).Sprint(string(status))
	}
}
