package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrMalformedID = errors.New("malformed dataset id")

// MalformedIDError reports a dataset id that fits neither the CMIP nor the
// native facet layout.
type MalformedIDError struct {
	ID     string
	Reason string
}

func (e *MalformedIDError) Error() string {
	return fmt.Sprintf("malformed dataset id %q: %s", e.ID, e.Reason)
}

func (e *MalformedIDError) Is(target error) bool {
	return target == ErrMalformedID
}

// Native data types.
const (
	DataTypeModelOutput = "model-output"
	DataTypeTimeSeries  = "time-series"
	DataTypeClimo       = "climo"
	DataTypeFixed       = "fixed"
	DataTypeCMIP        = "CMIP"
)

var nativeDataTypes = []string{DataTypeModelOutput, DataTypeTimeSeries, DataTypeClimo, DataTypeFixed}

// FrequencyMonthly is the frequency facet of monthly model output.
const FrequencyMonthly = "mon"

// Kind selects the completeness check a dataset gets.
type Kind int

const (
	KindMonthly Kind = iota
	KindSubmonthly
	KindTimeSeries
	KindClimo
	KindFixed
	KindCMIP
)

func (k Kind) String() string {
	switch k {
	case KindMonthly:
		return "monthly"
	case KindSubmonthly:
		return "sub-monthly"
	case KindTimeSeries:
		return "time-series"
	case KindClimo:
		return "climo"
	case KindFixed:
		return "fixed"
	case KindCMIP:
		return "cmip"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Facets are the parts of a dataset id that decide how it is checked.
type Facets struct {
	Kind      Kind
	DataType  string
	Realm     string
	Frequency string
	Grid      string
	// Variable is only set for CMIP ids.
	Variable string
}

// IsCMIP reports whether the id's facets follow the CMIP layout: some facet
// is exactly "CMIP", or the first facet is a CMIP era such as "CMIP6".
func IsCMIP(facets []string) bool {
	return slices.Contains(facets, DataTypeCMIP) || (len(facets) > 0 && strings.HasPrefix(facets[0], DataTypeCMIP))
}

// ParseID derives the facets of a dataset id.
//
// CMIP ids end in "<table>.<variable>.<grid>", and the table carries both the
// realm and the frequency. Native ids are
// "<project>.<model>.<experiment>.<resolution>.<realm>.<grid>.<data type>.<frequency>[...]";
// ids with the resolution or other leading facets left out are accepted as long
// as the data type can be found.
func ParseID(id string) (Facets, error) {
	facets := strings.Split(id, ".")
	if slices.Contains(facets, "") {
		return Facets{}, &MalformedIDError{ID: id, Reason: "empty facet"}
	}

	if IsCMIP(facets) {
		if len(facets) < 4 {
			return Facets{}, &MalformedIDError{ID: id, Reason: "CMIP id needs at least table, variable and grid facets"}
		}
		n := len(facets)
		return Facets{
			Kind:      KindCMIP,
			DataType:  DataTypeCMIP,
			Realm:     facets[n-3],
			Frequency: facets[n-3],
			Variable:  facets[n-2],
			Grid:      facets[n-1],
		}, nil
	}

	dt := -1
	if len(facets) >= 8 && slices.Contains(nativeDataTypes, facets[6]) {
		dt = 6
	} else {
		for i := 2; i < len(facets)-1; i++ {
			if slices.Contains(nativeDataTypes, facets[i]) {
				dt = i
				break
			}
		}
	}
	if dt < 0 {
		return Facets{}, &MalformedIDError{ID: id, Reason: "no data type facet followed by a frequency"}
	}

	f := Facets{
		DataType:  facets[dt],
		Realm:     facets[dt-2],
		Grid:      facets[dt-1],
		Frequency: facets[dt+1],
	}
	f.Kind = classify(f)
	return f, nil
}

func classify(f Facets) Kind {
	switch f.DataType {
	case DataTypeTimeSeries:
		return KindTimeSeries
	case DataTypeClimo:
		return KindClimo
	case DataTypeFixed:
		return KindFixed
	case DataTypeModelOutput:
		if f.Frequency == FrequencyMonthly {
			return KindMonthly
		}
		return KindSubmonthly
	default:
		panic(fmt.Sprintf("unclassified data type %q", f.DataType))
	}
}
