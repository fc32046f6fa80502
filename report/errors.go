package report

// MalformedReportError is returned when the input is not well-formed XML.
type MalformedReportError struct {
	Err error
}

func (e *MalformedReportError) Error() string {
	return "malformed report: " + e.Err.Error()
}

func (e *MalformedReportError) Unwrap() error {
	return e.Err
}
