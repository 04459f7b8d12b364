package dataset_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/dataset"
	"github.com/e3sm/warehouse/pkg/gaps"
	"github.com/e3sm/warehouse/pkg/naming"
	"github.com/e3sm/warehouse/pkg/statuslog"
	"github.com/e3sm/warehouse/pkg/types/timestamp"
)

const shortTSID = "E3SM.1_0.hist.atmos.180x360.time-series.mon"

type fakeCatalog struct {
	files   map[string][]string
	err     error
	lookups int
}

func (c *fakeCatalog) Lookup(_ context.Context, datasetID string) ([]string, error) {
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return c.files[datasetID], nil
}

func TestParseID(t *testing.T) {
	testCases := []struct {
		id   string
		want dataset.Facets
	}{
		{
			id: "CMIP6.CMIP.E3SM-Project.E3SM-1-0.historical.r1i1p1f1.Amon.tas.gr",
			want: dataset.Facets{Kind: dataset.KindCMIP, DataType: "CMIP", Realm: "Amon", Frequency: "Amon", Variable: "tas", Grid: "gr"},
		},
		{
			id: "CMIP6.ScenarioMIP.E3SM-Project.E3SM-1-1.ssp585.r1i1p1f1.Omon.pbo.gr",
			want: dataset.Facets{Kind: dataset.KindCMIP, DataType: "CMIP", Realm: "Omon", Frequency: "Omon", Variable: "pbo", Grid: "gr"},
		},
		{
			id: "E3SM.1_0.historical.1deg_atm_60-30km_ocean.atmos.180x360.time-series.mon.ens1",
			want: dataset.Facets{Kind: dataset.KindTimeSeries, DataType: "time-series", Realm: "atmos", Grid: "180x360", Frequency: "mon"},
		},
		{
			id: "E3SM.1_0.historical.1deg_atm_60-30km_ocean.atmos.native.model-output.mon.ens1",
			want: dataset.Facets{Kind: dataset.KindMonthly, DataType: "model-output", Realm: "atmos", Grid: "native", Frequency: "mon"},
		},
		{
			id: "E3SM.1_0.historical.1deg_atm_60-30km_ocean.atmos.native.model-output.day.ens1",
			want: dataset.Facets{Kind: dataset.KindSubmonthly, DataType: "model-output", Realm: "atmos", Grid: "native", Frequency: "day"},
		},
		{
			id: "E3SM.1_0.piControl.1deg_atm_60-30km_ocean.atmos.180x360.climo.mon.ens1",
			want: dataset.Facets{Kind: dataset.KindClimo, DataType: "climo", Realm: "atmos", Grid: "180x360", Frequency: "mon"},
		},
		{
			id: "E3SM.1_0.piControl.1deg_atm_60-30km_ocean.ocean.native.fixed.fx.ens1",
			want: dataset.Facets{Kind: dataset.KindFixed, DataType: "fixed", Realm: "ocean", Grid: "native", Frequency: "fx"},
		},
		{
			id: shortTSID,
			want: dataset.Facets{Kind: dataset.KindTimeSeries, DataType: "time-series", Realm: "atmos", Grid: "180x360", Frequency: "mon"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			got, err := dataset.ParseID(tc.id)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{
		"E3SM.1_0.hist",
		"E3SM.1_0.hist.atmos.180x360.time-series",
		"E3SM..hist.atmos.180x360.time-series.mon",
		"CMIP6.tas",
	} {
		t.Run("malformed "+bad, func(t *testing.T) {
			_, err := dataset.ParseID(bad)
			require.ErrorIs(t, err, dataset.ErrMalformedID)
		})
	}
}

func TestStatus(t *testing.T) {
	for s := dataset.StatusUninitialized; s <= dataset.StatusPartial; s++ {
		parsed, err := dataset.ParseStatus(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}
	require.Equal(t, "PARTIAL", dataset.StatusPartial.String())
	_, err := dataset.ParseStatus("DONE")
	require.Error(t, err)
}

func TestFindStatus(t *testing.T) {
	ctx := t.Context()

	t.Run("complete time series", func(t *testing.T) {
		cat := &fakeCatalog{files: map[string][]string{
			shortTSID: {"ts/v1/pr_1850-1859.nc", "ts/v1/pr_1860-1869.nc"},
		}}
		d, err := dataset.New(shortTSID, dataset.WithSpan(1850, 1869), dataset.WithDatavars("pr"))
		require.NoError(t, err)

		status, err := d.FindStatus(ctx, cat)
		require.NoError(t, err)
		require.Equal(t, dataset.StatusSuccess, status)
		require.Equal(t, []string{}, d.Missing())
	})

	t.Run("time series missing a trailing chunk", func(t *testing.T) {
		cat := &fakeCatalog{files: map[string][]string{
			shortTSID: {"ts/v1/pr_1850-1859.nc"},
		}}
		d, err := dataset.New(shortTSID, dataset.WithSpan(1850, 1869), dataset.WithDatavars("pr"))
		require.NoError(t, err)

		status, err := d.FindStatus(ctx, cat)
		require.NoError(t, err)
		require.Equal(t, dataset.StatusPartial, status)
		require.Equal(t, []string{shortTSID + "-1859-1870"}, d.Missing())
		require.Equal(t, gaps.GapBoundary, d.Gaps()[0].Kind)
	})

	t.Run("status is computed once", func(t *testing.T) {
		cat := &fakeCatalog{files: map[string][]string{
			shortTSID: {"pr_1850-1869.nc"},
		}}
		d, err := dataset.New(shortTSID, dataset.WithDatavars("pr"))
		require.NoError(t, err)

		for range 3 {
			status, err := d.FindStatus(ctx, cat)
			require.NoError(t, err)
			require.Equal(t, dataset.StatusSuccess, status)
		}
		require.Equal(t, 1, cat.lookups)
		span, ok := d.Span()
		require.True(t, ok)
		require.Equal(t, gaps.Span{Start: 1850, End: 1869}, span)
	})

	t.Run("nothing published yet", func(t *testing.T) {
		cat := &fakeCatalog{}
		d, err := dataset.New(shortTSID, dataset.WithDatavars("pr"))
		require.NoError(t, err)

		status, err := d.FindStatus(ctx, cat)
		require.NoError(t, err)
		require.Equal(t, dataset.StatusUninitialized, status)

		// still unresolved, so the next call looks again
		_, err = d.FindStatus(ctx, cat)
		require.NoError(t, err)
		require.Equal(t, 2, cat.lookups)
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("catalog down")
		d, err := dataset.New(shortTSID, dataset.WithDatavars("pr"))
		require.NoError(t, err)

		status, err := d.FindStatus(ctx, &fakeCatalog{err: boom})
		require.ErrorIs(t, err, boom)
		require.Equal(t, dataset.StatusUninitialized, status)
	})

	t.Run("errors leave status untouched", func(t *testing.T) {
		cat := &fakeCatalog{files: map[string][]string{shortTSID: {"pr.nc"}}}
		d, err := dataset.New(shortTSID, dataset.WithSpan(1850, 1869), dataset.WithDatavars("pr"))
		require.NoError(t, err)
		_, err = d.FindStatus(ctx, cat)
		require.ErrorIs(t, err, naming.ErrMalformedFilename)
		require.Equal(t, dataset.StatusUninitialized, d.Status())

		d, err = dataset.New(shortTSID, dataset.WithSpan(1850, 1869))
		require.NoError(t, err)
		_, err = d.FindStatus(ctx, &fakeCatalog{files: map[string][]string{shortTSID: {"pr_1850-1869.nc"}}})
		require.ErrorIs(t, err, gaps.ErrMissingVariableConfig)
		require.Equal(t, dataset.StatusUninitialized, d.Status())
	})

	t.Run("daily CMIP files are malformed", func(t *testing.T) {
		const id = "CMIP6.CMIP.E3SM-Project.E3SM-1-0.historical.r1i1p1f1.day.tas.gr"
		cat := &fakeCatalog{files: map[string][]string{id: {
			"tas_day_E3SM-1-0_historical_r1i1p1f1_gr_18500101-18541231.nc",
			"tas_day_E3SM-1-0_historical_r1i1p1f1_gr_18550101-18591231.nc",
		}}}
		d, err := dataset.New(id, dataset.WithSpan(1850, 1859))
		require.NoError(t, err)
		_, err = d.FindStatus(ctx, cat)
		require.ErrorIs(t, err, naming.ErrMalformedFilename)
		require.Equal(t, dataset.StatusUninitialized, d.Status())
		require.Empty(t, d.Missing())
	})

	t.Run("only the latest version is checked", func(t *testing.T) {
		const id = "E3SM.1_0.historical.1deg_atm_60-30km_ocean.atmos.native.model-output.mon.ens1"
		var files []string
		for y := 1850; y <= 1851; y++ {
			for m := 1; m <= 12; m++ {
				files = append(files, fmt.Sprintf("/wh/v2/case.cam.h0.%04d-%02d.nc", y, m))
			}
		}
		// v1 was incomplete, and should not matter
		files = append(files, "/wh/v1/case.cam.h0.1850-01.nc")

		d, err := dataset.New(id)
		require.NoError(t, err)
		status, err := d.FindStatus(ctx, &fakeCatalog{files: map[string][]string{id: files}})
		require.NoError(t, err)
		require.Equal(t, dataset.StatusSuccess, status)
		require.Equal(t, map[string]int{"v1": 1, "v2": 24}, d.Versions())
		require.Equal(t, "v2", d.LatestVersion())
		require.Len(t, d.Files(), 24)
	})

	t.Run("fixed datasets have no gaps", func(t *testing.T) {
		const id = "E3SM.1_0.piControl.1deg_atm_60-30km_ocean.ocean.native.fixed.fx.ens1"
		d, err := dataset.New(id)
		require.NoError(t, err)
		status, err := d.FindStatus(ctx, &fakeCatalog{files: map[string][]string{id: {"v1/mpaso.rst.0001-01-01_00000.nc"}}})
		require.NoError(t, err)
		require.Equal(t, dataset.StatusSuccess, status)
		_, ok := d.Span()
		require.False(t, ok)
	})
}

func TestNewWithPath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/warehouse/E3SM/1_0/hist/atmos/180x360/time-series/mon"
	require.NoError(t, fsys.MkdirAll(dir+"/v1", 0o755))
	require.NoError(t, fsys.MkdirAll(dir+"/v2/sub", 0o755))
	require.NoError(t, afero.WriteFile(fsys, dir+"/v1/pr_185001_185912.nc", nil, 0o644))
	require.NoError(t, afero.WriteFile(fsys, dir+"/v2/pr_185001_185912.nc", nil, 0o644))
	require.NoError(t, afero.WriteFile(fsys, dir+"/v2/sub/pr_186001_186912.nc", nil, 0o644))
	require.NoError(t, afero.WriteFile(fsys, dir+"/"+statuslog.FileName,
		[]byte("STAT:20210101000000:WAREHOUSE:Extract:Pass\nCOMM:hello\n"), 0o644))

	d, err := dataset.New(shortTSID, dataset.WithPath(fsys, dir))
	require.NoError(t, err)
	require.Equal(t, map[string]int{"v1": 1, "v2": 2}, d.Versions())
	require.Equal(t, "v2", d.LatestVersion())
	latest, ok := d.LatestStatus()
	require.True(t, ok)
	require.Equal(t, "Extract:Pass", latest.Value)
	require.Equal(t, []string{"COMM:hello"}, d.Log().Comm)

	rec := statuslog.Record{
		Timestamp: timestamp.New(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)),
		Major:     "VALIDATION",
		Minor:     "Completeness",
		Status:    "SUCCESS",
	}
	require.NoError(t, d.Record(rec))
	latest, ok = d.LatestStatus()
	require.True(t, ok)
	require.Equal(t, "Completeness:SUCCESS", latest.Value)

	reloaded, err := dataset.New(shortTSID, dataset.WithPath(fsys, dir))
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Log().Len())

	t.Run("given versions are kept", func(t *testing.T) {
		d, err := dataset.New(shortTSID, dataset.WithPath(fsys, dir), dataset.WithVersions(map[string]int{"v3": 7}))
		require.NoError(t, err)
		require.Equal(t, map[string]int{"v3": 7}, d.Versions())
	})

	t.Run("missing directory", func(t *testing.T) {
		d, err := dataset.New(shortTSID, dataset.WithPath(fsys, "/nowhere"))
		require.NoError(t, err)
		require.Empty(t, d.Versions())
		_, ok := d.LatestStatus()
		require.False(t, ok)
	})

	t.Run("record without a path", func(t *testing.T) {
		d, err := dataset.New(shortTSID)
		require.NoError(t, err)
		require.ErrorIs(t, d.Record(rec), dataset.ErrNoPath)
	})
}

func TestContainersAreNotShared(t *testing.T) {
	versions := map[string]int{"v1": 1}
	a, err := dataset.New(shortTSID, dataset.WithVersions(versions))
	require.NoError(t, err)
	b, err := dataset.New(shortTSID)
	require.NoError(t, err)

	versions["v2"] = 2
	require.Equal(t, map[string]int{"v1": 1}, a.Versions())
	require.Empty(t, b.Versions())

	got := a.Versions()
	got["v9"] = 9
	require.NotContains(t, a.Versions(), "v9")
}

func TestNewRejectsBadSpan(t *testing.T) {
	_, err := dataset.New(shortTSID, dataset.WithSpan(1900, 1850))
	require.ErrorIs(t, err, gaps.ErrInvalidSpan)
}
