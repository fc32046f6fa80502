package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drone/drone-qops/ingest"
	"github.com/drone/drone-qops/report"
)

// RunRecord is a stored test run. Outcomes are only loaded by GetRun.
type RunRecord struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
	ingest.Run
}

const runColumns = `id, uid, project_id, name, environment, build, branch, triggered_by,
	status, total, passed, failed, skipped, started_at, finished_at, created_at`

// SaveRun stores a run and all of its outcomes in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *ingest.Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := projectExists(ctx, tx, run.Meta.ProjectID); err != nil {
		return 0, err
	}

	uid := uuid.NewString()
	result, err := tx.ExecContext(ctx, `INSERT INTO test_runs
		(uid, project_id, name, environment, build, branch, triggered_by,
		 status, total, passed, failed, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid,
		run.Meta.ProjectID,
		run.Meta.Name,
		nullString(run.Meta.Environment),
		nullString(run.Meta.Build),
		nullString(run.Meta.Branch),
		nullString(run.Meta.TriggeredBy),
		string(run.Summary.Status),
		run.Summary.Total,
		run.Summary.Passed,
		run.Summary.Failed,
		run.Summary.Skipped,
		nullTime(run.Meta.StartedAt),
		nullTime(run.Meta.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert test run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get run id: %w", err)
	}

	if len(run.Outcomes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO test_case_results
			(test_run_id, position, name, classname, status, duration, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("prepare case statement: %w", err)
		}
		defer stmt.Close()

		for i, o := range run.Outcomes {
			_, err := stmt.ExecContext(ctx, runID, i, o.Name, nullStringPtr(o.ClassName),
				string(o.Status), nullFloat(o.Duration), nullStringPtr(o.Message))
			if err != nil {
				return 0, fmt.Errorf("insert case result: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	logCommit("test run", runID, run.Meta.ProjectID, uid)
	return runID, nil
}

// GetRun returns a run with its outcomes in document order.
func (s *Store) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM test_runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, classname, status, duration, message
		FROM test_case_results WHERE test_run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	rec.Outcomes = []report.Outcome{}
	for rows.Next() {
		var (
			o         report.Outcome
			status    string
			classname sql.NullString
			duration  sql.NullFloat64
			message   sql.NullString
		)
		if err := rows.Scan(&o.Name, &classname, &status, &duration, &message); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		o.Status = report.Status(status)
		o.ClassName = stringPtr(classname)
		o.Duration = floatPtr(duration)
		o.Message = stringPtr(message)
		rec.Outcomes = append(rec.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case results: %w", err)
	}
	return rec, nil
}

// ListRuns returns the runs of a project, newest first, without outcomes.
func (s *Store) ListRuns(ctx context.Context, projectID int64) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM test_runs WHERE project_id = ? ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query test runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var (
		rec                                     RunRecord
		status                                  string
		environment, build, branch, triggeredBy sql.NullString
		startedAt, finishedAt                   sql.NullTime
	)
	err := sc.Scan(&rec.ID, &rec.UID, &rec.Meta.ProjectID, &rec.Meta.Name,
		&environment, &build, &branch, &triggeredBy,
		&status, &rec.Summary.Total, &rec.Summary.Passed, &rec.Summary.Failed, &rec.Summary.Skipped,
		&startedAt, &finishedAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan test run: %w", err)
	}

	rec.Meta.Environment = environment.String
	rec.Meta.Build = build.String
	rec.Meta.Branch = branch.String
	rec.Meta.TriggeredBy = triggeredBy.String
	rec.Meta.StartedAt = timePtr(startedAt)
	rec.Meta.FinishedAt = timePtr(finishedAt)
	rec.Summary.Status = report.RunStatus(status)
	return &rec, nil
}
