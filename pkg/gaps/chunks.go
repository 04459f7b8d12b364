package gaps

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/e3sm/warehouse/pkg/naming"
)

// CheckTimeSeries walks the chunks of every variable in datavars. A variable
// with no files is reported as one [GapVariable] covering the whole span, and
// one starting late as a [GapLeading]. Every gap names its variable.
// Files of variables not listed in datavars are ignored.
func CheckTimeSeries(datasetID string, files []string, span Span, datavars []string) ([]Gap, error) {
	if len(datavars) == 0 {
		return nil, &MissingVariableConfigError{DatasetID: datasetID}
	}
	if len(files) == 0 {
		return nil, &EmptyDatasetError{DatasetID: datasetID}
	}
	if err := span.Validate(); err != nil {
		return nil, err
	}

	byVar := make(map[string][]naming.Chunk)
	for _, f := range files {
		ts, err := naming.ParseTimeSeries(f)
		if err != nil {
			return nil, fmt.Errorf("parsing time-series file for %s: %w", datasetID, err)
		}
		byVar[ts.Variable] = append(byVar[ts.Variable], ts.Chunk)
	}

	vars := slices.Clone(datavars)
	slices.Sort(vars)
	vars = slices.Compact(vars)

	var gaps []Gap
	for _, v := range vars {
		chunks, ok := byVar[v]
		if !ok {
			gaps = append(gaps, Gap{Kind: GapVariable, DatasetID: datasetID, Variable: v, From: span.Start, To: span.End})
			continue
		}
		gaps = append(gaps, walk(datasetID, v, chunks, span)...)
	}
	return gaps, nil
}

// CheckSpans walks the chunks of a CMIP dataset, whose files each cover a
// "YYYYMM-YYYYMM" range.
func CheckSpans(datasetID string, files []string, span Span) ([]Gap, error) {
	if len(files) == 0 {
		return nil, &EmptyDatasetError{DatasetID: datasetID}
	}
	if err := span.Validate(); err != nil {
		return nil, err
	}

	chunks := make([]naming.Chunk, 0, len(files))
	for _, f := range files {
		c, err := naming.ParseCMIP(f)
		if err != nil {
			return nil, fmt.Errorf("parsing CMIP file for %s: %w", datasetID, err)
		}
		chunks = append(chunks, c)
	}
	return walk(datasetID, "", chunks, span), nil
}

// walk reports every break in coverage of span by chunks. Chunks may overlap
// or extend past the span. The caller's slice is left as is. With a variable,
// a late first chunk is a [GapLeading] rather than a boundary.
func walk(datasetID, variable string, chunks []naming.Chunk, span Span) []Gap {
	sorted := slices.Clone(chunks)
	slices.SortFunc(sorted, func(a, b naming.Chunk) int {
		return cmp.Or(cmp.Compare(a.Start.Year, b.Start.Year), cmp.Compare(a.End.Year, b.End.Year))
	})

	var gaps []Gap
	prev := span.Start - 1
	for _, c := range sorted {
		if c.Start.Year > prev+1 {
			g := Gap{Kind: GapBoundary, DatasetID: datasetID, Variable: variable, From: prev, To: c.Start.Year}
			if variable != "" && prev == span.Start-1 {
				g.Kind, g.From = GapLeading, span.Start
			}
			gaps = append(gaps, g)
		}
		prev = max(prev, c.End.Year)
	}
	if prev < span.End {
		gaps = append(gaps, Gap{Kind: GapBoundary, DatasetID: datasetID, Variable: variable, From: prev, To: span.End + 1})
	}
	return gaps
}
