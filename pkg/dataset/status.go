package dataset

import "fmt"

// Status is where a dataset stands in the publication workflow.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitialized
	StatusPending
	StatusRunning
	StatusFailed
	StatusSuccess
	StatusPartial
)

var statusNames = [...]string{
	StatusUninitialized: "UNINITIALIZED",
	StatusInitialized:   "INITIALIZED",
	StatusPending:       "PENDING",
	StatusRunning:       "RUNNING",
	StatusFailed:        "FAILED",
	StatusSuccess:       "SUCCESS",
	StatusPartial:       "PARTIAL",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus is the inverse of [Status.String].
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return StatusUninitialized, fmt.Errorf("unknown dataset status %q", s)
}
