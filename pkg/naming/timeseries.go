package naming

import (
	"fmt"
	"regexp"
)

var (
	// "pr_185001_185912.nc", "pr_185001_185912_cmip6_180x360_aave.nc"
	tsMonthly = regexp.MustCompile(`^(.+?)_(\d{4})(\d{2})_(\d{4})(\d{2})(?:_(.+))?\.nc$`)
	// "pr_1850-1859.nc"
	tsYearly = regexp.MustCompile(`^(.+?)_(\d{4})-(\d{4})(?:_(.+))?\.nc$`)
)

// TimeSeriesName is one chunk of a single-variable time series.
type TimeSeriesName struct {
	Variable string
	// Regrid is the tag of the mapping used to produce the file, empty for
	// files on the dataset's own grid.
	Regrid string
	Chunk
}

// ParseTimeSeries parses "{var}_{YYYYMM}_{YYYYMM}[_{regrid}].nc", or the
// year-only form "{var}_{YYYY}-{YYYY}[_{regrid}].nc".
func ParseTimeSeries(name string) (TimeSeriesName, error) {
	base := Base(name)
	if m := tsMonthly.FindStringSubmatch(base); m != nil {
		return TimeSeriesName{
			Variable: m[1],
			Regrid:   m[6],
			Chunk: Chunk{
				Name:  base,
				Start: Period{Year: atoi(m[2]), Month: atoi(m[3])},
				End:   Period{Year: atoi(m[4]), Month: atoi(m[5])},
			},
		}, nil
	}
	if m := tsYearly.FindStringSubmatch(base); m != nil {
		return TimeSeriesName{
			Variable: m[1],
			Regrid:   m[4],
			Chunk: Chunk{
				Name:  base,
				Start: Period{Year: atoi(m[2])},
				End:   Period{Year: atoi(m[3])},
			},
		}, nil
	}
	return TimeSeriesName{}, malformed(ConventionTimeSeries, base)
}

// TimeSeriesSpan returns the earliest start year and latest end year across
// all chunks, whatever their variable.
func TimeSeriesSpan(names []string) (start, end int, err error) {
	if len(names) == 0 {
		return 0, 0, fmt.Errorf("no %s files to infer a span from", ConventionTimeSeries)
	}
	for i, n := range names {
		ts, err := ParseTimeSeries(n)
		if err != nil {
			return 0, 0, err
		}
		if i == 0 || ts.Start.Year < start {
			start = ts.Start.Year
		}
		if i == 0 || ts.End.Year > end {
			end = ts.End.Year
		}
	}
	return start, end, nil
}
