package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestClassify tests marker precedence and message normalization
func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		testCase    testCase
		wantStatus  Status
		wantMessage *string
	}{
		{
			name:       "NoMarkers",
			testCase:   testCase{},
			wantStatus: StatusPassed,
		},
		{
			name: "FailureBeatsSkipped",
			testCase: testCase{
				Skipped:  []marker{{Message: "skip"}},
				Failures: []marker{{Message: "x", Text: "boom"}},
			},
			wantStatus:  StatusFailed,
			wantMessage: str("x\nboom"),
		},
		{
			name: "FailureBeatsError",
			testCase: testCase{
				Errors:   []marker{{Text: "err"}},
				Failures: []marker{{Text: "fail"}},
			},
			wantStatus:  StatusFailed,
			wantMessage: str("fail"),
		},
		{
			name: "ErrorBeatsSkipped",
			testCase: testCase{
				Errors:  []marker{{Message: "timeout"}},
				Skipped: []marker{{}},
			},
			wantStatus:  StatusError,
			wantMessage: str("timeout"),
		},
		{
			name:       "EmptySkippedHasNoMessage",
			testCase:   testCase{Skipped: []marker{{}}},
			wantStatus: StatusSkipped,
		},
		{
			name:       "WhitespaceOnlyMessageIsAbsent",
			testCase:   testCase{Failures: []marker{{Message: "  ", Text: "\n\t "}}},
			wantStatus: StatusFailed,
		},
		{
			name:        "FirstMarkerWins",
			testCase:    testCase{Failures: []marker{{Message: "first"}, {Message: "second"}}},
			wantStatus:  StatusFailed,
			wantMessage: str("first"),
		},
		{
			name:        "BodyIsTrimmed",
			testCase:    testCase{Failures: []marker{{Text: "\n    trace line\n  "}}},
			wantStatus:  StatusFailed,
			wantMessage: str("trace line"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, message := classify(tc.testCase)
			if status != tc.wantStatus {
				t.Errorf("classify() status = %s, want %s", status, tc.wantStatus)
			}
			if diff := cmp.Diff(tc.wantMessage, message); diff != "" {
				t.Errorf("classify() message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFailureAndSkippedMarkers(t *testing.T) {
	input := `<testsuite><testcase name="both"><skipped/><failure message="real"/></testcase></testsuite>`

	result, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if got := result.Outcomes[0].Status; got != StatusFailed {
		t.Errorf("status = %s, want %s", got, StatusFailed)
	}
}
