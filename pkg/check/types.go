package check

import (
	"time"

	"github.com/e3sm/warehouse/pkg/gaps"
	"github.com/e3sm/warehouse/pkg/types/id"
)

// Outcome is what a check concluded about one dataset.
type Outcome string

const (
	// OutcomeSuccess means every expected file is present.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomePartial means the dataset has gaps.
	OutcomePartial Outcome = "PARTIAL"
	// OutcomeFailed means the dataset could not be checked: a malformed file
	// name, a missing variable list, a failed lookup.
	OutcomeFailed Outcome = "FAILED"
	// OutcomeUnavailable means nothing is published for the dataset yet. It is
	// not recorded, so a later run tries again.
	OutcomeUnavailable Outcome = "UNAVAILABLE"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{OutcomeSuccess, OutcomePartial, OutcomeFailed, OutcomeUnavailable}

// Report contains the results of checking a batch of datasets.
type Report struct {
	RunID       id.RunID
	Results     []Result // In request order
	OverallPass bool     // Every dataset succeeded
	Recorded    int      // Status log records written
}

// Count returns how many datasets ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Result is the result of checking one dataset.
type Result struct {
	DatasetID string
	Kind      string // Empty if the id did not parse
	Outcome   Outcome
	Version   string    // Version directory the files came from
	Span      gaps.Span // Valid if HasSpan
	HasSpan   bool
	Missing   []string // Gaps, in order
	Issues    []Issue  // Problems found
	Err       error    // Why the check failed, for OutcomeFailed
	Recorded  bool     // A status record was appended
	Elapsed   time.Duration
}

// Passed reports whether the dataset is complete.
func (r Result) Passed() bool {
	return r.Outcome == OutcomeSuccess
}

// Issue represents a problem found during a check.
type Issue struct {
	Type        IssueType // Error or Warning
	Description string    // Short description of the issue
	Details     string    // Additional context (optional)
}

// IssueType indicates the severity of an issue.
type IssueType string

const (
	IssueTypeError   IssueType = "error"
	IssueTypeWarning IssueType = "warning"
)
