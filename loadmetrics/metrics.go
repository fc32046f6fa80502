// Package loadmetrics validates pre-aggregated load-test summaries before
// they are handed to storage. Values are carried through unchanged.
package loadmetrics

import "time"

// DefaultRunName is used when a payload carries no name.
const DefaultRunName = "locust-run"

// Payload is a load-test summary as supplied by a caller. Required numeric
// fields are pointers so that a missing field can be told apart from zero.
type Payload struct {
	ProjectID   int64  `json:"project_id" validate:"required,gt=0"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Build       string `json:"build"`
	Branch      string `json:"branch"`
	TriggeredBy string `json:"triggered_by"`

	TotalRequests     *int64   `json:"total_requests" validate:"required,gte=0"`
	TotalFailures     *int64   `json:"total_failures" validate:"required,gte=0"`
	AvgResponseTime   *float64 `json:"avg_response_time" validate:"required,gte=0"`
	P95ResponseTime   *float64 `json:"p95_response_time" validate:"required,gte=0"`
	P99ResponseTime   *float64 `json:"p99_response_time" validate:"required,gte=0"`
	MaxResponseTime   *float64 `json:"max_response_time" validate:"required,gte=0"`
	MinResponseTime   *float64 `json:"min_response_time" validate:"required,gte=0"`
	RequestsPerSecond *float64 `json:"requests_per_second" validate:"required,gte=0"`
	FailureRate       *float64 `json:"failure_rate" validate:"required,gte=0,lte=100"`
	DurationSeconds   *float64 `json:"duration_seconds" validate:"required,gte=0"`

	SuccessThresholdMet *bool          `json:"success_threshold_met"`
	StartedAt           *time.Time     `json:"started_at"`
	FinishedAt          *time.Time     `json:"finished_at"`
	Extra               map[string]any `json:"extra"`
}

// Record is an accepted load-test summary.
type Record struct {
	ProjectID   int64  `json:"project_id"`
	Name        string `json:"name"`
	Environment string `json:"environment,omitempty"`
	Build       string `json:"build,omitempty"`
	Branch      string `json:"branch,omitempty"`
	TriggeredBy string `json:"triggered_by,omitempty"`

	TotalRequests     int64   `json:"total_requests"`
	TotalFailures     int64   `json:"total_failures"`
	AvgResponseTime   float64 `json:"avg_response_time"`
	P95ResponseTime   float64 `json:"p95_response_time"`
	P99ResponseTime   float64 `json:"p99_response_time"`
	MaxResponseTime   float64 `json:"max_response_time"`
	MinResponseTime   float64 `json:"min_response_time"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	FailureRate       float64 `json:"failure_rate"`
	DurationSeconds   float64 `json:"duration_seconds"`

	SuccessThresholdMet *bool          `json:"success_threshold_met"`
	StartedAt           *time.Time     `json:"started_at,omitempty"`
	FinishedAt          *time.Time     `json:"finished_at,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// Accept validates a payload under the given policy and returns the record
// it describes. No value is recomputed.
func Accept(p *Payload, policy Policy) (*Record, error) {
	if err := Validate(p, policy); err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = DefaultRunName
	}

	return &Record{
		ProjectID:           p.ProjectID,
		Name:                name,
		Environment:         p.Environment,
		Build:               p.Build,
		Branch:              p.Branch,
		TriggeredBy:         p.TriggeredBy,
		TotalRequests:       *p.TotalRequests,
		TotalFailures:       *p.TotalFailures,
		AvgResponseTime:     *p.AvgResponseTime,
		P95ResponseTime:     *p.P95ResponseTime,
		P99ResponseTime:     *p.P99ResponseTime,
		MaxResponseTime:     *p.MaxResponseTime,
		MinResponseTime:     *p.MinResponseTime,
		RequestsPerSecond:   *p.RequestsPerSecond,
		FailureRate:         *p.FailureRate,
		DurationSeconds:     *p.DurationSeconds,
		SuccessThresholdMet: p.SuccessThresholdMet,
		StartedAt:           p.StartedAt,
		FinishedAt:          p.FinishedAt,
		Extra:               p.Extra,
	}, nil
}
