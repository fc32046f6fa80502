package loadmetrics

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func validPayload() *Payload {
	return &Payload{
		ProjectID:         1,
		TotalRequests:     i64(1000),
		TotalFailures:     i64(10),
		AvgResponseTime:   f64(120),
		P95ResponseTime:   f64(300),
		P99ResponseTime:   f64(450),
		MaxResponseTime:   f64(900),
		MinResponseTime:   f64(15),
		RequestsPerSecond: f64(50),
		FailureRate:       f64(1),
		DurationSeconds:   f64(20),
	}
}

func TestAcceptCarriesValuesThrough(t *testing.T) {
	p := validPayload()
	met := true
	p.SuccessThresholdMet = &met
	p.Environment = "staging"
	p.Extra = map[string]any{"users": float64(50)}

	rec, err := Accept(p, Policy{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.ProjectID)
	assert.Equal(t, DefaultRunName, rec.Name)
	assert.Equal(t, "staging", rec.Environment)
	assert.Equal(t, int64(1000), rec.TotalRequests)
	assert.Equal(t, int64(10), rec.TotalFailures)
	assert.Equal(t, 120.0, rec.AvgResponseTime)
	assert.Equal(t, 300.0, rec.P95ResponseTime)
	assert.Equal(t, 450.0, rec.P99ResponseTime)
	assert.Equal(t, 900.0, rec.MaxResponseTime)
	assert.Equal(t, 15.0, rec.MinResponseTime)
	assert.Equal(t, 50.0, rec.RequestsPerSecond)
	assert.Equal(t, 1.0, rec.FailureRate)
	assert.Equal(t, 20.0, rec.DurationSeconds)
	require.NotNil(t, rec.SuccessThresholdMet)
	assert.True(t, *rec.SuccessThresholdMet)
	assert.Equal(t, map[string]any{"users": float64(50)}, rec.Extra)
}

func TestAcceptKeepsName(t *testing.T) {
	p := validPayload()
	p.Name = "checkout-load"

	rec, err := Accept(p, Policy{})
	require.NoError(t, err)
	assert.Equal(t, "checkout-load", rec.Name)
	assert.Nil(t, rec.SuccessThresholdMet)
}

func TestValidateFailuresExceedRequests(t *testing.T) {
	p := validPayload()
	p.TotalRequests = i64(10)
	p.TotalFailures = i64(15)

	rec, err := Accept(p, Policy{})
	require.Error(t, err)
	assert.Nil(t, rec)

	var ime *InvalidMetricsError
	require.True(t, errors.As(err, &ime))
	assert.Equal(t, "total_failures", ime.Field)
	assert.Contains(t, ime.Reason, "exceeds total_requests")
}

func TestValidateStructuralViolations(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *Payload)
		wantFields []string
	}{
		{
			name:       "MissingRequiredField",
			mutate:     func(p *Payload) { p.P99ResponseTime = nil },
			wantFields: []string{"p99_response_time"},
		},
		{
			name:       "MissingProject",
			mutate:     func(p *Payload) { p.ProjectID = 0 },
			wantFields: []string{"project_id"},
		},
		{
			name:       "NegativeCount",
			mutate:     func(p *Payload) { p.TotalRequests = i64(-1) },
			wantFields: []string{"total_requests", "total_failures"},
		},
		{
			name: "SeveralNegativeTimings",
			mutate: func(p *Payload) {
				p.AvgResponseTime = f64(-1)
				p.RequestsPerSecond = f64(-0.5)
			},
			wantFields: []string{"avg_response_time", "requests_per_second"},
		},
		{
			name:       "FailureRateAboveHundred",
			mutate:     func(p *Payload) { p.FailureRate = f64(101) },
			wantFields: []string{"failure_rate"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(p)

			err := Validate(p, Policy{})
			require.Error(t, err)

			var fields []string
			for _, v := range Violations(err) {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tc.wantFields, fields)
		})
	}
}

func TestValidateMissingReason(t *testing.T) {
	p := validPayload()
	p.DurationSeconds = nil

	err := Validate(p, Policy{})
	require.Error(t, err)
	violations := Violations(err)
	require.Len(t, violations, 1)
	assert.Equal(t, "required field is missing", violations[0].Reason)
	assert.Contains(t, err.Error(), "duration_seconds")
}

func TestValidateNilPayload(t *testing.T) {
	err := Validate(nil, Policy{})
	var ime *InvalidMetricsError
	require.True(t, errors.As(err, &ime))
	assert.Equal(t, "payload", ime.Field)
}

func TestValidateOrderingPolicy(t *testing.T) {
	p := validPayload()
	p.P95ResponseTime = f64(500) // above p99

	require.NoError(t, Validate(p, Policy{}), "default policy must not check percentile order")

	err := Validate(p, Policy{StrictOrdering: true})
	require.Error(t, err)
	violations := Violations(err)
	require.Len(t, violations, 1)
	assert.Equal(t, "p99_response_time", violations[0].Field)
}

func TestValidateFailureRateConsistency(t *testing.T) {
	p := validPayload()
	p.FailureRate = f64(5) // counts imply 1%

	require.NoError(t, Validate(p, Policy{}))

	err := Validate(p, Policy{StrictOrdering: true})
	require.Error(t, err)
	assert.Equal(t, "failure_rate", Violations(err)[0].Field)

	require.NoError(t, Validate(p, Policy{StrictOrdering: true, FailureRateTolerance: 5}))
}

func TestValidateStrictAcceptsZeroRequests(t *testing.T) {
	p := validPayload()
	p.TotalRequests = i64(0)
	p.TotalFailures = i64(0)
	p.FailureRate = f64(0)

	assert.NoError(t, Validate(p, Policy{StrictOrdering: true}))
}

func TestDecode(t *testing.T) {
	data, err := os.ReadFile("../testdata/load-summary.json")
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)
	p.ProjectID = 7

	rec, err := Accept(p, Policy{StrictOrdering: true})
	require.NoError(t, err)
	assert.Equal(t, "checkout-load", rec.Name)
	assert.Equal(t, int64(12000), rec.TotalRequests)
	assert.Equal(t, int64(24), rec.TotalFailures)
	assert.Equal(t, 0.2, rec.FailureRate)
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, 2026, rec.StartedAt.Year())
	assert.Equal(t, float64(50), rec.Extra["users"])
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		field  string
		reason string
	}{
		{name: "NotJSON", input: `{"total_requests":`, field: "payload"},
		{name: "WrongType", input: `{"total_requests": "many"}`, field: "total_requests", reason: "got string, want integer"},
		{name: "QuotedNumber", input: `{"total_requests": "10"}`, field: "total_requests"},
		{name: "NullCount", input: `{"total_requests": null}`, field: "total_requests", reason: "required field is missing"},
		{name: "NullRate", input: `{"failure_rate": null}`, field: "failure_rate", reason: "required field is missing"},
		{name: "NotAnObject", input: `[1, 2, 3]`, field: "payload"},
		{name: "FractionalCount", input: `{"total_failures": 1.5}`, field: "total_failures"},
		{name: "BadTimestamp", input: `{"started_at": "yesterday"}`, field: "started_at"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode([]byte(tc.input))
			assert.Nil(t, p)

			var ime *InvalidMetricsError
			require.True(t, errors.As(err, &ime), "got %v", err)
			assert.Equal(t, tc.field, ime.Field)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, ime.Reason)
			}
			assert.NotContains(t, err.Error(), "file://")
		})
	}
}

func TestDecodeReportsEveryBadField(t *testing.T) {
	_, err := Decode([]byte(`{"total_requests": null, "p95_response_time": "slow"}`))
	require.Error(t, err)

	fields := map[string]string{}
	for _, v := range Violations(err) {
		fields[v.Field] = v.Reason
	}
	assert.Equal(t, map[string]string{
		"total_requests":    "required field is missing",
		"p95_response_time": "got string, want number",
	}, fields)
}

func TestDecodeAcceptsIntegralFloatCounts(t *testing.T) {
	p, err := Decode([]byte(`{"project_id": 3.0, "total_requests": 10.0, "total_failures": 1e1}`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), p.ProjectID)
	require.NotNil(t, p.TotalRequests)
	assert.Equal(t, int64(10), *p.TotalRequests)
	require.NotNil(t, p.TotalFailures)
	assert.Equal(t, int64(10), *p.TotalFailures)
}

func TestDecodeMissingFieldsCaughtByValidate(t *testing.T) {
	p, err := Decode([]byte(`{"project_id": 1, "total_requests": 5}`))
	require.NoError(t, err)

	err = Validate(p, Policy{})
	require.Error(t, err)
	assert.Len(t, Violations(err), 9)
}
