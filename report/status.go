package report

// Summarize counts outcomes by status and resolves the run status.
// Error outcomes count as failed.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		s.Total++
		switch o.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed, StatusError:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	s.Status = ResolveStatus(s)
	return s
}

// ResolveStatus derives the overall run status from summary counts.
// Skipped cases do not prevent a passed verdict.
func ResolveStatus(s Summary) RunStatus {
	switch {
	case s.Total == 0:
		return RunUnknown
	case s.Failed == 0:
		return RunPassed
	default:
		return RunFailed
	}
}
