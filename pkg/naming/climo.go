package naming

import (
	"fmt"
	"regexp"
)

// Season is a seasonal climatology label and the months its file name
// carries.
type Season struct {
	Name       string
	StartMonth int
	EndMonth   int
}

// Seasons are the seasonal climatologies every climo dataset must contain.
// DJF is named with the full-year month range, matching the files produced by
// the climatology generator.
var Seasons = []Season{
	{Name: "ANN", StartMonth: 1, EndMonth: 12},
	{Name: "DJF", StartMonth: 1, EndMonth: 12},
	{Name: "MAM", StartMonth: 3, EndMonth: 5},
	{Name: "JJA", StartMonth: 6, EndMonth: 8},
	{Name: "SON", StartMonth: 9, EndMonth: 11},
}

// "case_01_185001_185401_climo.nc", "case_ANN_185001_185412_climo.nc"
var climoName = regexp.MustCompile(`^(.*_)(\d{2}|ANN|DJF|MAM|JJA|SON)_(\d{4})(\d{2})_(\d{4})(\d{2})_climo\.nc$`)

// ClimoName is a monthly or seasonal climatology file name.
type ClimoName struct {
	// Prefix is everything before the label, including the trailing "_".
	Prefix string
	// Label is a two-digit month or a season name.
	Label string
	Start Period
	End   Period
}

// ParseClimo parses "{prefix}{label}_{YYYYMM}_{YYYYMM}_climo.nc".
func ParseClimo(name string) (ClimoName, error) {
	base := Base(name)
	m := climoName.FindStringSubmatch(base)
	if m == nil {
		return ClimoName{}, malformed(ConventionClimo, base)
	}
	return ClimoName{
		Prefix: m[1],
		Label:  m[2],
		Start:  Period{Year: atoi(m[3]), Month: atoi(m[4])},
		End:    Period{Year: atoi(m[5]), Month: atoi(m[6])},
	}, nil
}

func (c ClimoName) String() string {
	return ClimoFileName(c.Prefix, c.Label, c.Start, c.End)
}

// ClimoFileName builds a climatology file name.
func ClimoFileName(prefix, label string, start, end Period) string {
	return fmt.Sprintf("%s%s_%04d%02d_%04d%02d_climo.nc", prefix, label, start.Year, start.Month, end.Year, end.Month)
}

// ClimoSpan returns the start year of the first file and the end year of the
// last file, in sorted order.
func ClimoSpan(names []string) (start, end int, err error) {
	if len(names) == 0 {
		return 0, 0, fmt.Errorf("no %s files to infer a span from", ConventionClimo)
	}
	sorted := Sorted(names)
	first, err := ParseClimo(sorted[0])
	if err != nil {
		return 0, 0, err
	}
	last, err := ParseClimo(sorted[len(sorted)-1])
	if err != nil {
		return 0, 0, err
	}
	return first.Start.Year, last.End.Year, nil
}
