// Package gaps finds the periods missing from a dataset, given its file names
// and the span of years it is expected to cover.
//
// There is one detector per dataset kind. All of them are pure: they hold no
// state and never modify the slices they are given.
package gaps

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDataset          = errors.New("dataset has no files")
	ErrMissingVariableConfig = errors.New("time-series dataset has no variables configured")
	ErrInvalidSpan           = errors.New("invalid span")
)

// EmptyDatasetError is returned when a detector is handed no files at all.
// An empty dataset is not available yet; it is never complete.
type EmptyDatasetError struct {
	DatasetID string
}

func (e *EmptyDatasetError) Error() string {
	if e.DatasetID == "" {
		return ErrEmptyDataset.Error()
	}
	return fmt.Sprintf("dataset %s has no files", e.DatasetID)
}

func (e *EmptyDatasetError) Is(target error) bool {
	return target == ErrEmptyDataset
}

// MissingVariableConfigError is returned when a time-series dataset is checked
// without a list of variables to look for.
type MissingVariableConfigError struct {
	DatasetID string
}

func (e *MissingVariableConfigError) Error() string {
	return fmt.Sprintf("dataset %s is trying to validate time-series files, but has no datavars", e.DatasetID)
}

func (e *MissingVariableConfigError) Is(target error) bool {
	return target == ErrMissingVariableConfig
}

// Span is an inclusive range of years.
type Span struct {
	Start int
	End   int
}

func (s Span) Validate() error {
	if s.Start < 0 || s.End > 9999 {
		return fmt.Errorf("%w: years must have at most four digits, got %04d-%04d", ErrInvalidSpan, s.Start, s.End)
	}
	if s.Start > s.End {
		return fmt.Errorf("%w: start year %04d is after end year %04d", ErrInvalidSpan, s.Start, s.End)
	}
	return nil
}

func (s Span) String() string {
	return fmt.Sprintf("%04d-%04d", s.Start, s.End)
}

// GapKind tells what sort of unit a [Gap] is missing.
type GapKind int

const (
	// GapFile is an expected file that does not exist.
	GapFile GapKind = iota
	// GapYear is a year with no files at all.
	GapYear
	// GapVariable is a variable with no files at all.
	GapVariable
	// GapBoundary is a break between chunks, or between a chunk and the edge
	// of the span. From and To are the exclusive bounds around the missing
	// years.
	GapBoundary
	// GapLeading is a time-series variable whose first chunk starts after the
	// span does. From is the span start and To the first chunk's start year.
	GapLeading
)

func (k GapKind) String() string {
	switch k {
	case GapFile:
		return "file"
	case GapYear:
		return "year"
	case GapVariable:
		return "variable"
	case GapBoundary:
		return "boundary"
	case GapLeading:
		return "leading"
	default:
		return fmt.Sprintf("GapKind(%d)", int(k))
	}
}

// Gap is one missing unit.
type Gap struct {
	Kind      GapKind
	DatasetID string
	// Name is the synthesized file name for file gaps, and the unit name for
	// year gaps.
	Name     string
	Variable string
	From     int
	To       int
}

// String is the human readable name of the missing unit, the form consumed by
// workflow tooling.
func (g Gap) String() string {
	switch g.Kind {
	case GapVariable, GapLeading:
		return fmt.Sprintf("%s-%s-%04d-%04d", g.DatasetID, g.Variable, g.From, g.To)
	case GapBoundary:
		return fmt.Sprintf("%s-%04d-%04d", g.DatasetID, g.From, g.To)
	default:
		return g.Name
	}
}

// Strings converts gaps to their string form, keeping order. It never returns
// nil.
func Strings(gaps []Gap) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, g.String())
	}
	return out
}
