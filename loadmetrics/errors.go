package loadmetrics

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

// InvalidMetricsError reports a load payload field that violates a rule.
type InvalidMetricsError struct {
	Field  string
	Reason string
}

func (e *InvalidMetricsError) Error() string {
	return "invalid load metrics: " + e.Field + ": " + e.Reason
}

// Violations lists every *InvalidMetricsError carried by err.
func Violations(err error) []*InvalidMetricsError {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*InvalidMetricsError
		for _, e := range merr.Errors {
			var ime *InvalidMetricsError
			if errors.As(e, &ime) {
				out = append(out, ime)
			}
		}
		return out
	}

	var ime *InvalidMetricsError
	if errors.As(err, &ime) {
		return []*InvalidMetricsError{ime}
	}
	return nil
}
