package gaps

import (
	"fmt"

	"github.com/e3sm/warehouse/pkg/naming"
)

// CheckClimos expects the twelve monthly and five seasonal climatologies over
// span, named with the prefix of the first file in sorted order.
func CheckClimos(files []string, span Span) ([]Gap, error) {
	if len(files) == 0 {
		return nil, &EmptyDatasetError{}
	}
	if err := span.Validate(); err != nil {
		return nil, err
	}

	names := naming.Sorted(files)
	first, err := naming.ParseClimo(names[0])
	if err != nil {
		return nil, fmt.Errorf("finding climo file prefix: %w", err)
	}
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}

	var gaps []Gap
	expect := func(label string, startMonth, endMonth int) {
		name := naming.ClimoFileName(first.Prefix, label,
			naming.Period{Year: span.Start, Month: startMonth},
			naming.Period{Year: span.End, Month: endMonth})
		if _, ok := present[name]; !ok {
			gaps = append(gaps, Gap{Kind: GapFile, Name: name, From: span.Start, To: span.End})
		}
	}
	for month := 1; month <= 12; month++ {
		expect(fmt.Sprintf("%02d", month), month, month)
	}
	for _, s := range naming.Seasons {
		expect(s.Name, s.StartMonth, s.EndMonth)
	}
	return gaps, nil
}
