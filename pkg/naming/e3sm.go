package naming

import (
	"fmt"
	"regexp"
)

// e3smDate matches the ".YYYY-MM" token of native model output, e.g.
// "case.eam.h0.1850-01.nc" or "case.eam.h1.1850-01-01-00000.nc".
var e3smDate = regexp.MustCompile(`\.(\d{4})-(\d{2})`)

// E3SMName is a native model output file name split around its date token.
type E3SMName struct {
	// Prefix is everything before the year, including the separating dot.
	Prefix string
	Period Period
	// Suffix is everything after the month, e.g. ".nc" or "-01-00000.nc".
	Suffix string
}

// ParseE3SM splits a native model output file name. The last ".YYYY-MM"
// token is used, so dates embedded earlier in a case name are ignored.
func ParseE3SM(name string) (E3SMName, error) {
	base := Base(name)
	all := e3smDate.FindAllStringSubmatchIndex(base, -1)
	if len(all) == 0 {
		return E3SMName{}, malformed(ConventionE3SM, base)
	}
	m := all[len(all)-1]
	return E3SMName{
		Prefix: base[:m[0]+1],
		Period: Period{Year: atoi(base[m[2]:m[3]]), Month: atoi(base[m[4]:m[5]])},
		Suffix: base[m[5]:],
	}, nil
}

// WithPeriod returns the file name with the same prefix and suffix for p.
func (n E3SMName) WithPeriod(p Period) string {
	return fmt.Sprintf("%s%04d-%02d%s", n.Prefix, p.Year, p.Month, n.Suffix)
}

func (n E3SMName) String() string {
	return n.WithPeriod(n.Period)
}

// E3SMSpan returns the period of the first file and of the last file, in
// sorted order.
func E3SMSpan(names []string) (start, end Period, err error) {
	if len(names) == 0 {
		return Period{}, Period{}, fmt.Errorf("no %s files to infer a span from", ConventionE3SM)
	}
	sorted := Sorted(names)
	first, err := ParseE3SM(sorted[0])
	if err != nil {
		return Period{}, Period{}, err
	}
	last, err := ParseE3SM(sorted[len(sorted)-1])
	if err != nil {
		return Period{}, Period{}, err
	}
	return first.Period, last.Period, nil
}
