package report

// Status is the classified outcome of a single test case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// RunStatus is the overall verdict of a run.
type RunStatus string

const (
	RunPassed  RunStatus = "passed"
	RunFailed  RunStatus = "failed"
	RunUnknown RunStatus = "unknown"
)

// UnnamedCase is used when a testcase element carries no name.
const UnnamedCase = "unnamed"

// Outcome represents one parsed test case.
//
// ClassName, Duration and Message are nil when absent from the source.
// A nil Duration is distinct from a zero Duration.
type Outcome struct {
	Name      string   `json:"name"`
	ClassName *string  `json:"classname"`
	Status    Status   `json:"status"`
	Duration  *float64 `json:"duration_seconds"`
	Message   *string  `json:"message"`
}

// Summary is the aggregate of one parsed report.
// Failed counts both failed and error outcomes.
type Summary struct {
	Total   int       `json:"total"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"`
	Status  RunStatus `json:"status"`
}

// Report is the result of parsing a JUnit document.
type Report struct {
	Outcomes []Outcome `json:"cases"`
	Summary  Summary   `json:"summary"`
}

// testCase represents a JUnit testcase element.
type testCase struct {
	Name      *string  `xml:"name,attr"`
	ClassName *string  `xml:"classname,attr"`
	Time      *string  `xml:"time,attr"`
	Failures  []marker `xml:"failure"`
	Errors    []marker `xml:"error"`
	Skipped   []marker `xml:"skipped"`
}

// marker represents a failure, error or skipped child of a testcase.
type marker struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}
