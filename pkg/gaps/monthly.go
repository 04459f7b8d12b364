package gaps

import (
	"fmt"

	"github.com/e3sm/warehouse/pkg/naming"
)

// CheckMonthly expects one file per month of every year in span. Expected
// names are built from the prefix and suffix of the first file in sorted
// order, and every one that is absent is reported as a [GapFile].
func CheckMonthly(files []string, span Span) ([]Gap, error) {
	if len(files) == 0 {
		return nil, &EmptyDatasetError{}
	}
	if err := span.Validate(); err != nil {
		return nil, err
	}

	names := naming.Sorted(files)
	first, err := naming.ParseE3SM(names[0])
	if err != nil {
		return nil, fmt.Errorf("finding monthly file prefix: %w", err)
	}

	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}

	var gaps []Gap
	for year := span.Start; year <= span.End; year++ {
		for month := 1; month <= 12; month++ {
			name := first.WithPeriod(naming.Period{Year: year, Month: month})
			if _, ok := present[name]; !ok {
				gaps = append(gaps, Gap{Kind: GapFile, Name: name, From: year, To: year})
			}
		}
	}
	return gaps, nil
}

// CheckSubmonthly only checks that every year in span has at least one file.
// Sub-monthly output uses too many different history and time-step codes to
// predict exact names. Each file counts toward one year only.
func CheckSubmonthly(files []string, span Span) ([]Gap, error) {
	if len(files) == 0 {
		return nil, &EmptyDatasetError{}
	}
	if err := span.Validate(); err != nil {
		return nil, err
	}

	names := naming.Sorted(files)
	remaining := make([]naming.E3SMName, 0, len(names))
	for _, n := range names {
		parsed, err := naming.ParseE3SM(n)
		if err != nil {
			return nil, fmt.Errorf("parsing sub-monthly file: %w", err)
		}
		remaining = append(remaining, parsed)
	}
	prefix := remaining[0].Prefix

	var gaps []Gap
	// The end year is checked too, as in CheckMonthly.
	for year := span.Start; year <= span.End; year++ {
		found := -1
		for i, f := range remaining {
			if f.Period.Year == year {
				found = i
				break
			}
		}
		if found < 0 {
			gaps = append(gaps, Gap{Kind: GapYear, Name: fmt.Sprintf("%s%04d", prefix, year), From: year, To: year})
			continue
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return gaps, nil
}
