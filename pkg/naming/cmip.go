package naming

import (
	"fmt"
	"regexp"
)

// cmipSpan matches the "YYYYMM-YYYYMM" token of a CMIP file, e.g.
// "pbo_Omon_E3SM-1-1-ECA_hist-bgc_r1i1p1f1_gr_185001-185412.nc". Daily and
// sub-daily tokens such as "18500101-18541231" do not match.
var cmipSpan = regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})-(\d{4})(\d{2})(?:\D|$)`)

// Chunk is the inclusive range of periods covered by one file.
type Chunk struct {
	Name  string
	Start Period
	End   Period
}

// ParseCMIP extracts the chunk a CMIP file covers.
func ParseCMIP(name string) (Chunk, error) {
	base := Base(name)
	m := cmipSpan.FindStringSubmatch(base)
	if m == nil {
		return Chunk{}, malformed(ConventionCMIP, base)
	}
	return Chunk{
		Name:  base,
		Start: Period{Year: atoi(m[1]), Month: atoi(m[2])},
		End:   Period{Year: atoi(m[3]), Month: atoi(m[4])},
	}, nil
}

// CMIPSpan returns the start year of the first file and the end year of the
// last file, in sorted order.
func CMIPSpan(names []string) (start, end int, err error) {
	if len(names) == 0 {
		return 0, 0, fmt.Errorf("no %s files to infer a span from", ConventionCMIP)
	}
	sorted := Sorted(names)
	first, err := ParseCMIP(sorted[0])
	if err != nil {
		return 0, 0, err
	}
	last, err := ParseCMIP(sorted[len(sorted)-1])
	if err != nil {
		return 0, 0, err
	}
	return first.Start.Year, last.End.Year, nil
}
