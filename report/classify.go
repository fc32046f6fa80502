package report

import "strings"

// classify maps a testcase to exactly one status. Markers are checked in
// fixed order: failure, error, skipped. The first marker of the matching
// kind supplies the message.
func classify(tc testCase) (Status, *string) {
	switch {
	case len(tc.Failures) > 0:
		return StatusFailed, markerMessage(tc.Failures[0])
	case len(tc.Errors) > 0:
		return StatusError, markerMessage(tc.Errors[0])
	case len(tc.Skipped) > 0:
		return StatusSkipped, markerMessage(tc.Skipped[0])
	default:
		return StatusPassed, nil
	}
}

// markerMessage joins the message attribute and the text body with a newline
// and trims the result. An empty result is absent.
func markerMessage(m marker) *string {
	msg := strings.TrimSpace(m.Message + "\n" + m.Text)
	if msg == "" {
		return nil
	}
	return &msg
}
