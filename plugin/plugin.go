package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/drone/drone-qops/ingest"
	"github.com/drone/drone-qops/loadmetrics"
	"github.com/drone/drone-qops/store"
)

// Args represents the plugin's configurable arguments.
type Args struct {
	ReportFilenamePattern string  `envconfig:"PLUGIN_REPORT_FILENAME_PATTERN"`
	LoadReportFile        string  `envconfig:"PLUGIN_LOAD_REPORT_FILE"`
	DatabasePath          string  `envconfig:"PLUGIN_DATABASE_PATH"`
	Project               string  `envconfig:"PLUGIN_PROJECT"`
	RunName               string  `envconfig:"PLUGIN_RUN_NAME"`
	Environment           string  `envconfig:"PLUGIN_ENVIRONMENT"`
	Build                 string  `envconfig:"PLUGIN_BUILD"`
	Branch                string  `envconfig:"PLUGIN_BRANCH"`
	TriggeredBy           string  `envconfig:"PLUGIN_TRIGGERED_BY"`
	FailedFails           int     `envconfig:"PLUGIN_FAILED_FAILS"`
	FailedSkips           int     `envconfig:"PLUGIN_FAILED_SKIPS"`
	FailOnFailedRun       bool    `envconfig:"PLUGIN_FAIL_ON_FAILED_RUN"`
	ThresholdMode         int     `envconfig:"PLUGIN_THRESHOLD_MODE" default:"1"`
	PluginFailIfNoResults bool    `envconfig:"PLUGIN_FAIL_IF_NO_RESULTS"`
	StrictMetrics         bool    `envconfig:"PLUGIN_STRICT_METRICS"`
	FailureRateTolerance  float64 `envconfig:"PLUGIN_FAILURE_RATE_TOLERANCE"`
	Level                 string  `envconfig:"PLUGIN_LOG_LEVEL"`

	// Pipeline metadata used when the explicit settings are empty.
	BuildNumber  string `envconfig:"DRONE_BUILD_NUMBER"`
	CommitBranch string `envconfig:"DRONE_COMMIT_BRANCH"`
	BuildEvent   string `envconfig:"DRONE_BUILD_EVENT"`
}

// ValidateInputs ensures the user inputs meet the plugin requirements.
func ValidateInputs(args Args) error {
	if args.ReportFilenamePattern == "" && args.LoadReportFile == "" {
		return errors.New("missing required parameter: ReportFilenamePattern or LoadReportFile. Please specify what to ingest")
	}
	if args.DatabasePath == "" {
		return errors.New("missing required parameter: DatabasePath. Please specify where results are stored")
	}
	if args.Project == "" {
		return errors.New("missing required parameter: Project. Please specify the project the results belong to")
	}
	if args.FailedFails < 0 || args.FailedSkips < 0 {
		return errors.New("threshold values must be non-negative. Check the configured values for failed and skipped tests")
	}
	if args.ThresholdMode != ThresholdModeAbsolute && args.ThresholdMode != ThresholdModePercentage {
		return errors.New("invalid ThresholdMode value. It must be 1 (absolute) or 2 (percentage). Check the configuration")
	}
	if args.FailureRateTolerance < 0 {
		return errors.New("FailureRateTolerance must be non-negative")
	}
	return nil
}

// Exec ingests the matching JUnit reports and the load summary, logs their
// details and enforces the configured thresholds. Every report is parsed
// before the store is opened, so a malformed file leaves no trace in it.
func Exec(ctx context.Context, args Args) error {
	var files []string
	if args.ReportFilenamePattern != "" {
		var err error
		files, err = locateFiles(args.ReportFilenamePattern)
		if err != nil {
			logger := logrus.WithError(err)
			logger.Error("Error locating files")
			return errors.New("failed to locate files: " + err.Error())
		}

		if len(files) == 0 {
			if args.PluginFailIfNoResults {
				return errors.New("no JUnit XML report files found. Check the report file pattern")
			}
			logrus.Warn("No JUnit XML report files found, continuing execution as PluginFailIfNoResults is false")
		}
	}

	meta := runMeta(args)

	runs := make([]*ingest.Run, 0, len(files))
	for _, file := range files {
		run, err := processFile(file, meta)
		if err != nil {
			logger := logrus.WithField("File", file).WithError(err)
			logger.Error("Error processing file")
			return errors.New("failed to process file: " + err.Error())
		}
		runs = append(runs, run)
	}

	var payload *loadmetrics.Payload
	if args.LoadReportFile != "" {
		var err error
		payload, err = readLoadFile(args.LoadReportFile)
		if err != nil {
			return errors.New("failed to process load report: " + err.Error())
		}
	}

	var aggregatedResults Results
	if len(runs) > 0 || payload != nil {
		st, err := store.NewStore(args.DatabasePath)
		if err != nil {
			logrus.WithError(err).WithField("Database", args.DatabasePath).Error("Failed to open store")
			return errors.New("failed to open store: " + err.Error())
		}
		defer st.Close()

		projectID, err := st.EnsureProject(ctx, args.Project)
		if err != nil {
			return errors.New("failed to resolve project: " + err.Error())
		}
		meta.ProjectID = projectID

		coord := ingest.NewCoordinator(st, loadmetrics.Policy{
			StrictOrdering:       args.StrictMetrics,
			FailureRateTolerance: args.FailureRateTolerance,
		})

		for i, run := range runs {
			run.Meta.ProjectID = projectID
			id, err := coord.SubmitRun(ctx, run)
			if err != nil {
				logger := logrus.WithField("File", files[i]).WithError(err)
				logger.Error("Failed to store run")
				return errors.New("failed to store run: " + err.Error())
			}
			logRunDetails(id, run)
			aggregatedResults.add(run)
		}

		if payload != nil {
			if err := processLoadFile(ctx, coord, payload, args.LoadReportFile, meta); err != nil {
				return errors.New("failed to process load report: " + err.Error())
			}
		}
	}

	if len(runs) > 0 {
		logrus.Infof("\n===============================================")
		logrus.Infof("\nTotal Tests Results: %d | Failures: %d | Skips: %d | Duration: %.3f s | Runs: %d (%d failed)",
			aggregatedResults.Total, aggregatedResults.Failures, aggregatedResults.Skipped,
			aggregatedResults.DurationSeconds, aggregatedResults.Runs, aggregatedResults.FailedRuns)
		logrus.Infof("\n===============================================")
	}

	// Validate thresholds at the aggregate level
	if err := validateThresholds(aggregatedResults, args); err != nil {
		logger := logrus.WithFields(logrus.Fields{
			"Total Tests":     aggregatedResults.Total,
			"Failures":        aggregatedResults.Failures,
			"Skipped":         aggregatedResults.Skipped,
			"DurationSeconds": aggregatedResults.DurationSeconds,
		})
		logger.Error(err.Error())
		return err
	}

	return nil
}

// runMeta builds the run metadata, falling back to pipeline variables. The
// project id is filled in once the project is resolved.
func runMeta(args Args) ingest.RunMeta {
	meta := ingest.RunMeta{
		Name:        args.RunName,
		Environment: args.Environment,
		Build:       args.Build,
		Branch:      args.Branch,
		TriggeredBy: args.TriggeredBy,
	}
	if meta.Build == "" {
		meta.Build = args.BuildNumber
	}
	if meta.Branch == "" {
		meta.Branch = args.CommitBranch
	}
	if meta.TriggeredBy == "" {
		meta.TriggeredBy = args.BuildEvent
	}
	return meta
}

// locateFiles identifies files matching the given pattern.
func locateFiles(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger := logrus.WithError(err).WithField("Pattern", pattern)
		logger.Error("Error occurred while searching for files")
		return nil, errors.New("failed to search for files: " + err.Error())
	}
	return matches, nil
}

// processFile parses one JUnit XML report into a run. Without an explicit
// run name the file name is used.
func processFile(filename string, meta ingest.RunMeta) (*ingest.Run, error) {
	logrus.Infof("Processing file: %s", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		logger := logrus.WithError(err).WithField("File", filename)
		logger.Error("Failed to read file")
		return nil, errors.New("failed to read file: " + err.Error())
	}

	if meta.Name == "" {
		meta.Name = filepath.Base(filename)
	}

	run, err := ingest.BuildRun(data, meta)
	if err != nil {
		logger := logrus.WithError(err).WithField("File", filename)
		logger.Error("Failed to parse JUnit XML")
		return nil, errors.New("failed to parse JUnit XML: " + err.Error())
	}
	return run, nil
}

// logRunDetails logs the summary and cases of a stored run.
func logRunDetails(id int64, run *ingest.Run) {
	s := run.Summary

	logrus.Infof("\n===============================================")
	logrus.Infof("\nRun #%d: %s", id, run.Meta.Name)
	logrus.Infof("\nTotal Tests: %d | Passed: %d | Failures: %d | Skips: %d | Status: %s",
		s.Total, s.Passed, s.Failed, s.Skipped, s.Status)
	logrus.Infof("\n---------------------------------------------------------------------------")

	logrus.Infof("\nTest Details:")
	for _, o := range run.Outcomes {
		class := "-"
		if o.ClassName != nil && *o.ClassName != "" {
			class = *o.ClassName
		}
		duration := "n/a"
		if o.Duration != nil {
			duration = fmt.Sprintf("%.3f s", *o.Duration)
		}
		logrus.Infof("\n- Test: %s | Class: %s | Status: %s | Duration: %s", o.Name, class, o.Status, duration)
		if o.Message != nil {
			logrus.Infof("\n    Message: %s", *o.Message)
		}
	}
}

// readLoadFile reads and decodes a JSON load-test summary.
func readLoadFile(filename string) (*loadmetrics.Payload, error) {
	logrus.Infof("Processing load report: %s", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		logger := logrus.WithError(err).WithField("File", filename)
		logger.Error("Failed to read file")
		return nil, errors.New("failed to read file: " + err.Error())
	}

	payload, err := loadmetrics.Decode(data)
	if err != nil {
		logViolations(err, filename)
		return nil, err
	}
	return payload, nil
}

// processLoadFile validates and stores a decoded load summary. Pipeline
// metadata fills fields the summary leaves empty.
func processLoadFile(ctx context.Context, coord *ingest.Coordinator, payload *loadmetrics.Payload, filename string, meta ingest.RunMeta) error {
	payload.ProjectID = meta.ProjectID
	if payload.Environment == "" {
		payload.Environment = meta.Environment
	}
	if payload.Build == "" {
		payload.Build = meta.Build
	}
	if payload.Branch == "" {
		payload.Branch = meta.Branch
	}
	if payload.TriggeredBy == "" {
		payload.TriggeredBy = meta.TriggeredBy
	}

	id, rec, err := coord.IngestLoad(ctx, payload)
	if err != nil {
		logViolations(err, filename)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"ID":                id,
		"Requests":          rec.TotalRequests,
		"Failures":          rec.TotalFailures,
		"FailureRate":       rec.FailureRate,
		"P95":               rec.P95ResponseTime,
		"P99":               rec.P99ResponseTime,
		"RequestsPerSecond": rec.RequestsPerSecond,
	}).Infof("Load run stored: %s", rec.Name)
	return nil
}

func logViolations(err error, filename string) {
	violations := loadmetrics.Violations(err)
	if len(violations) == 0 {
		logrus.WithError(err).WithField("File", filename).Error("Failed to ingest load report")
		return
	}
	for _, v := range violations {
		logrus.WithField("Field", v.Field).WithField("File", filename).Error(v.Reason)
	}
}

// validateThresholds validates test report thresholds based on aggregate results.
func validateThresholds(results Results, args Args) error {
	if args.FailOnFailedRun && results.FailedRuns > 0 {
		return fmt.Errorf("build marked as failed: %d ingested run(s) failed and FailOnFailedRun is true", results.FailedRuns)
	}

	switch args.ThresholdMode {
	case ThresholdModeAbsolute:
		if err := validateAbsoluteThresholds(results, args); err != nil {
			return errors.New("absolute threshold validation failed: " + err.Error())
		}
	case ThresholdModePercentage:
		if err := validatePercentageThresholds(results, args); err != nil {
			return errors.New("percentage threshold validation failed: " + err.Error())
		}
	default:
		return fmt.Errorf("invalid ThresholdMode: %d, expected 1 (absolute) or 2 (percentage)", args.ThresholdMode)
	}
	return nil
}

// validateAbsoluteThresholds checks absolute thresholds.
func validateAbsoluteThresholds(results Results, args Args) error {
	if args.FailedFails > 0 && results.Failures > args.FailedFails {
		return fmt.Errorf("number of failed tests (%d) exceeded the failure threshold (%d)", results.Failures, args.FailedFails)
	}
	if args.FailedSkips > 0 && results.Skipped > args.FailedSkips {
		return fmt.Errorf("number of skipped tests (%d) exceeded the skip threshold (%d)", results.Skipped, args.FailedSkips)
	}
	return nil
}

// validatePercentageThresholds checks percentage-based thresholds.
func validatePercentageThresholds(results Results, args Args) error {
	if results.Total == 0 {
		return nil
	}

	failureRate := float64(results.Failures) / float64(results.Total) * 100
	skipRate := float64(results.Skipped) / float64(results.Total) * 100

	if args.FailedFails > 0 && failureRate > float64(args.FailedFails) {
		return fmt.Errorf("failure rate (%.2f%%) exceeded the threshold (%.2f%%)", failureRate, float64(args.FailedFails))
	}
	if args.FailedSkips > 0 && skipRate > float64(args.FailedSkips) {
		return fmt.Errorf("skip rate (%.2f%%) exceeded the threshold (%.2f%%)", skipRate, float64(args.FailedSkips))
	}
	return nil
}
