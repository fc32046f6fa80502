// Package ingest turns uploaded reports and load summaries into the units
// handed to storage.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/drone/drone-qops/loadmetrics"
	"github.com/drone/drone-qops/report"
)

// DefaultRunName is used when run metadata carries no name.
const DefaultRunName = "robot-run"

// ErrMissingProject is returned when run metadata has no project id.
var ErrMissingProject = errors.New("project id is required")

// RunMeta is the caller-supplied metadata of a test run. String fields are
// passed through untouched; empty means absent.
type RunMeta struct {
	ProjectID   int64      `json:"project_id"`
	Name        string     `json:"name"`
	Environment string     `json:"environment,omitempty"`
	Build       string     `json:"build,omitempty"`
	Branch      string     `json:"branch,omitempty"`
	TriggeredBy string     `json:"triggered_by,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Run is one ingested report: its metadata, summary and outcomes in
// document order. It is handed to the Store as a single unit.
type Run struct {
	Meta     RunMeta          `json:"meta"`
	Summary  report.Summary   `json:"summary"`
	Outcomes []report.Outcome `json:"cases"`
}

// Store persists ingestion results. SaveRun must store the run together
// with all of its outcomes or nothing at all.
type Store interface {
	SaveRun(ctx context.Context, run *Run) (int64, error)
	SaveLoadRun(ctx context.Context, rec *loadmetrics.Record) (int64, error)
}

// Coordinator runs parsing and validation and hands results to a Store.
// It holds no per-call state and is safe for concurrent use.
type Coordinator struct {
	store  Store
	policy loadmetrics.Policy
}

// NewCoordinator returns a Coordinator writing to store and validating load
// summaries under policy.
func NewCoordinator(store Store, policy loadmetrics.Policy) *Coordinator {
	return &Coordinator{store: store, policy: policy}
}

// BuildRun parses a report and packages it with its metadata. It does not
// touch storage and does not look at the project id, so callers can parse
// before they resolve a project.
func BuildRun(data []byte, meta RunMeta) (*Run, error) {
	rep, err := report.Parse(data)
	if err != nil {
		return nil, err
	}

	if meta.Name == "" {
		meta.Name = DefaultRunName
	}
	return &Run{
		Meta:     meta,
		Summary:  rep.Summary,
		Outcomes: rep.Outcomes,
	}, nil
}

// IngestReport builds a run from raw report bytes and stores it. On a parse
// failure nothing is handed to the store. The stored run id is returned
// with the run.
func (c *Coordinator) IngestReport(ctx context.Context, data []byte, meta RunMeta) (int64, *Run, error) {
	if meta.ProjectID <= 0 {
		return 0, nil, ErrMissingProject
	}

	run, err := BuildRun(data, meta)
	if err != nil {
		return 0, nil, err
	}

	id, err := c.SubmitRun(ctx, run)
	if err != nil {
		return 0, nil, err
	}
	return id, run, nil
}

// SubmitRun hands a run built by BuildRun to the store.
func (c *Coordinator) SubmitRun(ctx context.Context, run *Run) (int64, error) {
	if run.Meta.ProjectID <= 0 {
		return 0, ErrMissingProject
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.store.SaveRun(ctx, run)
}

// IngestLoad validates a load summary and stores the accepted record.
func (c *Coordinator) IngestLoad(ctx context.Context, p *loadmetrics.Payload) (int64, *loadmetrics.Record, error) {
	rec, err := loadmetrics.Accept(p, c.policy)
	if err != nil {
		return 0, nil, err
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	id, err := c.store.SaveLoadRun(ctx, rec)
	if err != nil {
		return 0, nil, err
	}
	return id, rec, nil
}
