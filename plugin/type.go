package plugin

import (
	"github.com/drone/drone-qops/ingest"
	"github.com/drone/drone-qops/report"
)

// Threshold modes accepted in PLUGIN_THRESHOLD_MODE.
const (
	ThresholdModeAbsolute   = 1
	ThresholdModePercentage = 2
)

// Results aggregates the test runs ingested by one plugin execution.
type Results struct {
	Runs            int
	FailedRuns      int
	Total           int
	Failures        int
	Skipped         int
	DurationSeconds float64
}

// add folds a single run into the aggregate. Cases without timing do not
// contribute to the duration.
func (r *Results) add(run *ingest.Run) {
	r.Runs++
	if run.Summary.Status == report.RunFailed {
		r.FailedRuns++
	}
	r.Total += run.Summary.Total
	r.Failures += run.Summary.Failed
	r.Skipped += run.Summary.Skipped
	for _, o := range run.Outcomes {
		if o.Duration != nil {
			r.DurationSeconds += *o.Duration
		}
	}
}
