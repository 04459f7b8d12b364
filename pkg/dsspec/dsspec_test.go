package dsspec_test

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/dataset"
	"github.com/e3sm/warehouse/pkg/dsspec"
)

const specYAML = `
cases:
  - match: "E3SM.1_0.historical.*"
    start: 1850
    end: 2014
  - match: "E3SM.1_0.*"
    start: 1
    end: 500
time-series:
  atmos: [pr, tas]
  land: [SOILWATER_10CM]
`

func TestResolve(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/spec.yaml", []byte(specYAML), 0o644))
	spec, err := dsspec.Load(fsys, "/etc/spec.yaml")
	require.NoError(t, err)

	testCases := []struct {
		id   string
		want dsspec.Resolution
	}{
		{
			id:   "E3SM.1_0.historical.1deg_atm_60-30km_ocean.atmos.180x360.time-series.mon.ens1",
			want: dsspec.Resolution{Start: 1850, End: 2014, HasSpan: true, Datavars: []string{"pr", "tas"}},
		},
		{
			id:   "E3SM.1_0.piControl.1deg_atm_60-30km_ocean.atmos.native.model-output.mon.ens1",
			want: dsspec.Resolution{Start: 1, End: 500, HasSpan: true},
		},
		{
			id:   "E3SM.2_0.piControl.1deg_atm_60-30km_ocean.land.native.time-series.mon.ens1",
			want: dsspec.Resolution{Datavars: []string{"SOILWATER_10CM"}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			facets, err := dataset.ParseID(tc.id)
			require.NoError(t, err)
			got := spec.Resolve(tc.id, facets)
			require.Equal(t, tc.want, got)

			d, err := dataset.New(tc.id, got.Options()...)
			require.NoError(t, err)
			span, ok := d.Span()
			require.Equal(t, tc.want.HasSpan, ok)
			if ok {
				require.Equal(t, tc.want.Start, span.Start)
			}
			require.Equal(t, len(tc.want.Datavars), len(d.Datavars()))
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := map[string]string{
		"unknown key":   "cases: []\nextra: 1\n",
		"missing match": "cases:\n  - start: 1\n    end: 2\n",
		"backwards":     "cases:\n  - match: a\n    start: 3\n    end: 2\n",
		"bad glob":      "cases:\n  - match: \"[\"\n    start: 1\n    end: 2\n",
		"empty var":     "time-series:\n  atmos: [\"\"]\n",
	}
	for name, doc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := dsspec.Parse(strings.NewReader(doc))
			require.Error(t, err)
		})
	}

	spec, err := dsspec.Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, spec.Cases)
}
