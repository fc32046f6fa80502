package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drone/drone-qops/loadmetrics"
)

// LoadRunRecord is a stored load-test summary.
type LoadRunRecord struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
	loadmetrics.Record
}

const loadRunColumns = `id, uid, project_id, name, environment, build, branch, triggered_by,
	total_requests, total_failures, avg_response_time, p95_response_time, p99_response_time,
	max_response_time, min_response_time, requests_per_second, failure_rate, duration_seconds,
	success_threshold_met, extra, started_at, finished_at, created_at`

// SaveLoadRun stores an accepted load-test summary.
func (s *Store) SaveLoadRun(ctx context.Context, rec *loadmetrics.Record) (int64, error) {
	var extra sql.NullString
	if rec.Extra != nil {
		data, err := json.Marshal(rec.Extra)
		if err != nil {
			return 0, fmt.Errorf("marshal extra: %w", err)
		}
		extra = sql.NullString{String: string(data), Valid: true}
	}

	var thresholdMet sql.NullBool
	if rec.SuccessThresholdMet != nil {
		thresholdMet = sql.NullBool{Bool: *rec.SuccessThresholdMet, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := projectExists(ctx, tx, rec.ProjectID); err != nil {
		return 0, err
	}

	uid := uuid.NewString()
	result, err := tx.ExecContext(ctx, `INSERT INTO load_test_runs
		(uid, project_id, name, environment, build, branch, triggered_by,
		 total_requests, total_failures, avg_response_time, p95_response_time, p99_response_time,
		 max_response_time, min_response_time, requests_per_second, failure_rate, duration_seconds,
		 success_threshold_met, extra, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid,
		rec.ProjectID,
		rec.Name,
		nullString(rec.Environment),
		nullString(rec.Build),
		nullString(rec.Branch),
		nullString(rec.TriggeredBy),
		rec.TotalRequests,
		rec.TotalFailures,
		rec.AvgResponseTime,
		rec.P95ResponseTime,
		rec.P99ResponseTime,
		rec.MaxResponseTime,
		rec.MinResponseTime,
		rec.RequestsPerSecond,
		rec.FailureRate,
		rec.DurationSeconds,
		thresholdMet,
		extra,
		nullTime(rec.StartedAt),
		nullTime(rec.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert load run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get load run id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	logCommit("load run", id, rec.ProjectID, uid)
	return id, nil
}

// GetLoadRun returns a single load run.
func (s *Store) GetLoadRun(ctx context.Context, id int64) (*LoadRunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loadRunColumns+` FROM load_test_runs WHERE id = ?`, id)
	rec, err := scanLoadRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListLoadRuns returns the load runs of a project, newest first.
func (s *Store) ListLoadRuns(ctx context.Context, projectID int64) ([]LoadRunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+loadRunColumns+`
		FROM load_test_runs WHERE project_id = ? ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query load runs: %w", err)
	}
	defer rows.Close()

	var runs []LoadRunRecord
	for rows.Next() {
		rec, err := scanLoadRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate load runs: %w", err)
	}
	return runs, nil
}

func scanLoadRun(sc scanner) (*LoadRunRecord, error) {
	var (
		rec                                     LoadRunRecord
		environment, build, branch, triggeredBy sql.NullString
		avg, p95, p99, maxRT, minRT             sql.NullFloat64
		rps, failureRate, duration              sql.NullFloat64
		thresholdMet                            sql.NullBool
		extra                                   sql.NullString
		startedAt, finishedAt                   sql.NullTime
	)
	err := sc.Scan(&rec.ID, &rec.UID, &rec.ProjectID, &rec.Name,
		&environment, &build, &branch, &triggeredBy,
		&rec.TotalRequests, &rec.TotalFailures, &avg, &p95, &p99,
		&maxRT, &minRT, &rps, &failureRate, &duration,
		&thresholdMet, &extra, &startedAt, &finishedAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan load run: %w", err)
	}

	rec.Environment = environment.String
	rec.Build = build.String
	rec.Branch = branch.String
	rec.TriggeredBy = triggeredBy.String
	rec.AvgResponseTime = avg.Float64
	rec.P95ResponseTime = p95.Float64
	rec.P99ResponseTime = p99.Float64
	rec.MaxResponseTime = maxRT.Float64
	rec.MinResponseTime = minRT.Float64
	rec.RequestsPerSecond = rps.Float64
	rec.FailureRate = failureRate.Float64
	rec.DurationSeconds = duration.Float64
	if thresholdMet.Valid {
		met := thresholdMet.Bool
		rec.SuccessThresholdMet = &met
	}
	if extra.Valid {
		if err := json.Unmarshal([]byte(extra.String), &rec.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal extra: %w", err)
		}
	}
	rec.StartedAt = timePtr(startedAt)
	rec.FinishedAt = timePtr(finishedAt)
	return &rec, nil
}
