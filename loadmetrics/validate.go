package loadmetrics

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// DefaultFailureRateTolerance is the allowed gap, in percentage points,
// between a reported failure rate and the one implied by the counts.
const DefaultFailureRateTolerance = 0.01

// Policy selects the checks applied on top of the structural ones.
//
// The zero Policy validates presence, sign and failures <= requests only.
// StrictOrdering also requires min <= avg <= max, min <= p95 <= p99 <= max
// and a failure rate consistent with the counts.
type Policy struct {
	StrictOrdering       bool
	FailureRateTolerance float64
}

var validate *validator.Validate

// A single validator instance is used, because it caches struct parsing.
func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks p and returns every violation found. errors.As on the
// result yields the first *InvalidMetricsError.
func Validate(p *Payload, policy Policy) error {
	if p == nil {
		return &InvalidMetricsError{Field: "payload", Reason: "payload is missing"}
	}

	var merr *multierror.Error

	err := validate.Struct(p)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			merr = multierror.Append(merr, &InvalidMetricsError{
				Field:  fe.Field(),
				Reason: reasonFor(fe),
			})
		}
	} else if err != nil {
		return fmt.Errorf("validate load payload: %w", err)
	}

	if p.TotalRequests != nil && p.TotalFailures != nil && *p.TotalFailures > *p.TotalRequests {
		merr = multierror.Append(merr, &InvalidMetricsError{
			Field:  "total_failures",
			Reason: fmt.Sprintf("%d exceeds total_requests %d", *p.TotalFailures, *p.TotalRequests),
		})
	}

	if policy.StrictOrdering && merr == nil {
		for _, v := range strictViolations(p, policy) {
			merr = multierror.Append(merr, v)
		}
	}

	if merr != nil {
		merr.ErrorFormat = formatViolations
	}
	return merr.ErrorOrNil()
}

func strictViolations(p *Payload, policy Policy) []*InvalidMetricsError {
	var out []*InvalidMetricsError

	ordered := []struct {
		lower, upper       string
		lowerVal, upperVal float64
	}{
		{"min_response_time", "avg_response_time", *p.MinResponseTime, *p.AvgResponseTime},
		{"avg_response_time", "max_response_time", *p.AvgResponseTime, *p.MaxResponseTime},
		{"min_response_time", "p95_response_time", *p.MinResponseTime, *p.P95ResponseTime},
		{"p95_response_time", "p99_response_time", *p.P95ResponseTime, *p.P99ResponseTime},
		{"p99_response_time", "max_response_time", *p.P99ResponseTime, *p.MaxResponseTime},
	}
	for _, o := range ordered {
		if o.lowerVal > o.upperVal {
			out = append(out, &InvalidMetricsError{
				Field:  o.upper,
				Reason: fmt.Sprintf("%g is below %s %g", o.upperVal, o.lower, o.lowerVal),
			})
		}
	}

	if *p.TotalRequests > 0 {
		tolerance := policy.FailureRateTolerance
		if tolerance <= 0 {
			tolerance = DefaultFailureRateTolerance
		}
		expected := 100 * float64(*p.TotalFailures) / float64(*p.TotalRequests)
		if math.Abs(expected-*p.FailureRate) > tolerance {
			out = append(out, &InvalidMetricsError{
				Field:  "failure_rate",
				Reason: fmt.Sprintf("%g does not match %.4g implied by total_failures/total_requests", *p.FailureRate, expected),
			})
		}
	}
	return out
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is missing"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func formatViolations(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
