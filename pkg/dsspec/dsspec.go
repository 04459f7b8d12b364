// Package dsspec reads the dataset spec file, which declares the years each
// simulation case covers and the variables its time-series datasets must
// contain:
//
//	cases:
//	  - match: "E3SM.1_0.historical.*"
//	    start: 1850
//	    end: 2014
//	time-series:
//	  atmos: [pr, tas, TREFHT]
//	  land: [SOILWATER_10CM]
package dsspec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/e3sm/warehouse/pkg/dataset"
)

// Case declares the span of every dataset whose id matches a glob.
type Case struct {
	Match string `yaml:"match"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

type Spec struct {
	Cases []Case `yaml:"cases"`
	// TimeSeries lists the required variables by realm.
	TimeSeries map[string][]string `yaml:"time-series"`
}

// Resolution is what a spec says about one dataset.
type Resolution struct {
	Start, End int
	HasSpan    bool
	Datavars   []string
}

// Parse decodes and validates a spec. Unknown keys are rejected.
func Parse(r io.Reader) (*Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Spec
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding dataset spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads the spec file at name.
func Load(fsys afero.Fs, name string) (*Spec, error) {
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading dataset spec: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func (s *Spec) Validate() error {
	var errs []error
	for i, c := range s.Cases {
		if c.Match == "" {
			errs = append(errs, fmt.Errorf("case %d: match is required", i))
		} else if _, err := path.Match(c.Match, ""); err != nil {
			errs = append(errs, fmt.Errorf("case %d: bad match pattern %q: %w", i, c.Match, err))
		}
		if c.Start > c.End {
			errs = append(errs, fmt.Errorf("case %d: start %d is after end %d", i, c.Start, c.End))
		}
	}
	for realm, vars := range s.TimeSeries {
		if slices.Contains(vars, "") {
			errs = append(errs, fmt.Errorf("time-series realm %s: empty variable name", realm))
		}
	}
	return errors.Join(errs...)
}

// Resolve returns the span of the first case matching datasetID and, for
// time-series datasets, the variables listed for its realm.
func (s *Spec) Resolve(datasetID string, facets dataset.Facets) Resolution {
	var r Resolution
	for _, c := range s.Cases {
		// patterns were checked by Validate
		if ok, _ := path.Match(c.Match, datasetID); ok {
			r.Start, r.End, r.HasSpan = c.Start, c.End, true
			break
		}
	}
	if facets.Kind == dataset.KindTimeSeries {
		r.Datavars = slices.Clone(s.TimeSeries[facets.Realm])
	}
	return r
}

// Options turns a resolution into dataset options.
func (r Resolution) Options() []dataset.Option {
	var opts []dataset.Option
	if r.HasSpan {
		opts = append(opts, dataset.WithSpan(r.Start, r.End))
	}
	if len(r.Datavars) > 0 {
		opts = append(opts, dataset.WithDatavars(r.Datavars...))
	}
	return opts
}
