package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProjectSummary is the dashboard view of a project: its latest runs and
// the rates derived from them.
type ProjectSummary struct {
	ProjectID           int64          `json:"project_id"`
	ProjectName         string         `json:"project_name"`
	LastRun             *RunRecord     `json:"last_test_run"`
	LastLoadRun         *LoadRunRecord `json:"last_load_run"`
	OverallPassRate     *float64       `json:"overall_pass_rate"`
	LastLoadFailureRate *float64       `json:"last_load_failure_rate"`
}

// Summary returns the summary of a project. The pass rate is taken from
// the latest test run and is absent when that run has no tests.
func (s *Store) Summary(ctx context.Context, projectID int64) (*ProjectSummary, error) {
	sum := &ProjectSummary{ProjectID: projectID}

	err := s.db.QueryRowContext(ctx, `SELECT name FROM projects WHERE id = ?`, projectID).Scan(&sum.ProjectName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+`
		FROM test_runs WHERE project_id = ? ORDER BY id DESC LIMIT 1`, projectID)
	run, err := scanRun(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		sum.LastRun = run
		if run.Summary.Total > 0 {
			rate := float64(run.Summary.Passed) / float64(run.Summary.Total) * 100
			sum.OverallPassRate = &rate
		}
	}

	row = s.db.QueryRowContext(ctx, `SELECT `+loadRunColumns+`
		FROM load_test_runs WHERE project_id = ? ORDER BY id DESC LIMIT 1`, projectID)
	loadRun, err := scanLoadRun(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		sum.LastLoadRun = loadRun
		rate := loadRun.FailureRate
		sum.LastLoadFailureRate = &rate
	}

	return sum, nil
}
