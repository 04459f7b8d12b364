// Package naming parses the file naming conventions used by climate-model
// output datasets.
//
// Every convention writes years as four zero-padded digits and months as two,
// so sorting file names lexicographically also sorts them chronologically.
// [Sorted] relies on that, and so does everything that takes "the first" and
// "the last" file of a dataset to find its span.
package naming

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
)

// ErrMalformedFilename is matched (via [errors.Is]) by every
// [MalformedFilenameError].
var ErrMalformedFilename = errors.New("malformed filename")

// Convention names a file naming scheme.
type Convention string

const (
	ConventionE3SM       Convention = "e3sm"
	ConventionCMIP       Convention = "cmip"
	ConventionTimeSeries Convention = "time-series"
	ConventionClimo      Convention = "climo"
)

// MalformedFilenameError reports a file name that lacks the pattern its
// convention requires. It means the dataset uses a naming scheme we don't
// recognize, not that data is missing.
type MalformedFilenameError struct {
	Convention Convention
	Name       string
}

func (e *MalformedFilenameError) Error() string {
	return fmt.Sprintf("unexpected %s file name format: %s", e.Convention, e.Name)
}

func (e *MalformedFilenameError) Is(target error) bool {
	return target == ErrMalformedFilename
}

func malformed(c Convention, name string) error {
	return &MalformedFilenameError{Convention: c, Name: name}
}

// Period is a calendar year and month. Month is zero when a convention only
// encodes the year.
type Period struct {
	Year  int
	Month int
}

func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Base returns the last element of a slash-separated path or object key.
func Base(name string) string {
	return path.Base(name)
}

// Sorted returns the base names of names in lexicographic, and therefore
// chronological, order. The input is not modified.
func Sorted(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Base(n)
	}
	slices.Sort(out)
	return out
}

func atoi(s string) int {
	// Callers only pass digit runs matched by a regexp.
	n, _ := strconv.Atoi(s)
	return n
}
