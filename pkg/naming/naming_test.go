package naming_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/naming"
)

func TestParseE3SM(t *testing.T) {
	t.Run("monthly", func(t *testing.T) {
		n, err := naming.ParseE3SM("/data/v1/20180215.DECKv1b_H1.ne30_oEC.edison.cam.h0.1850-01.nc")
		require.NoError(t, err)
		require.Equal(t, "20180215.DECKv1b_H1.ne30_oEC.edison.cam.h0.", n.Prefix)
		require.Equal(t, naming.Period{Year: 1850, Month: 1}, n.Period)
		require.Equal(t, ".nc", n.Suffix)
		require.Equal(t, "20180215.DECKv1b_H1.ne30_oEC.edison.cam.h0.1851-12.nc", n.WithPeriod(naming.Period{Year: 1851, Month: 12}))
	})

	t.Run("sub-monthly", func(t *testing.T) {
		n, err := naming.ParseE3SM("case.eam.h1.1850-01-01-00000.nc")
		require.NoError(t, err)
		require.Equal(t, naming.Period{Year: 1850, Month: 1}, n.Period)
		require.Equal(t, "-01-00000.nc", n.Suffix)
		require.Equal(t, "case.eam.h1.1850-01-01-00000.nc", n.String())
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := naming.ParseE3SM("case.eam.h0.nc")
		require.ErrorIs(t, err, naming.ErrMalformedFilename)
		var mfe *naming.MalformedFilenameError
		require.ErrorAs(t, err, &mfe)
		require.Equal(t, naming.ConventionE3SM, mfe.Convention)
		require.Equal(t, "case.eam.h0.nc", mfe.Name)
	})
}

func TestE3SMSpan(t *testing.T) {
	start, end, err := naming.E3SMSpan([]string{
		"a/case.h0.1851-03.nc",
		"a/case.h0.1850-01.nc",
		"a/case.h0.1852-12.nc",
	})
	require.NoError(t, err)
	require.Equal(t, naming.Period{Year: 1850, Month: 1}, start)
	require.Equal(t, naming.Period{Year: 1852, Month: 12}, end)

	_, _, err = naming.E3SMSpan(nil)
	require.Error(t, err)
}

func TestParseCMIP(t *testing.T) {
	c, err := naming.ParseCMIP("pbo_Omon_E3SM-1-1-ECA_hist-bgc_r1i1p1f1_gr_185001-185412.nc")
	require.NoError(t, err)
	require.Equal(t, naming.Period{Year: 1850, Month: 1}, c.Start)
	require.Equal(t, naming.Period{Year: 1854, Month: 12}, c.End)

	c, err = naming.ParseCMIP("tas_Amon_E3SM-1-0_historical_r1i1p1f1_gr_185001-185412-clim.nc")
	require.NoError(t, err)
	require.Equal(t, 1854, c.End.Year)

	for _, name := range []string{
		"areacella_fx_E3SM-1-0_historical_r1i1p1f1_gr.nc",
		"tas_day_E3SM-1-0_historical_r1i1p1f1_gr_18500101-18541231.nc",
		"tas_3hr_E3SM-1-0_historical_r1i1p1f1_gr_185001010000-185412312359.nc",
		"tas_Amon_E3SM-1-0_historical_r1i1p1f1_gr_1850011-185412.nc",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := naming.ParseCMIP(name)
			require.ErrorIs(t, err, naming.ErrMalformedFilename)
		})
	}

	start, end, err := naming.CMIPSpan([]string{
		"tas_Amon_x_gr_185501-185912.nc",
		"tas_Amon_x_gr_185001-185412.nc",
	})
	require.NoError(t, err)
	require.Equal(t, 1850, start)
	require.Equal(t, 1859, end)
}

func TestParseTimeSeries(t *testing.T) {
	testCases := []struct {
		name     string
		variable string
		regrid   string
		start    naming.Period
		end      naming.Period
	}{
		{"pr_185001_185912.nc", "pr", "", naming.Period{Year: 1850, Month: 1}, naming.Period{Year: 1859, Month: 12}},
		{"SOILWATER_10CM_185001_185912.nc", "SOILWATER_10CM", "", naming.Period{Year: 1850, Month: 1}, naming.Period{Year: 1859, Month: 12}},
		{"pr_185001_185912_cmip6_180x360_aave.nc", "pr", "cmip6_180x360_aave", naming.Period{Year: 1850, Month: 1}, naming.Period{Year: 1859, Month: 12}},
		{"pr_1850-1859.nc", "pr", "", naming.Period{Year: 1850}, naming.Period{Year: 1859}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts, err := naming.ParseTimeSeries("dir/" + tc.name)
			require.NoError(t, err)
			require.Equal(t, tc.variable, ts.Variable)
			require.Equal(t, tc.regrid, ts.Regrid)
			require.Equal(t, tc.start, ts.Start)
			require.Equal(t, tc.end, ts.End)
			require.Equal(t, tc.name, ts.Name)
		})
	}

	for _, bad := range []string{"pr.nc", "pr_185001.nc", "pr_185001_185912.txt", "_185001_185912.nc"} {
		t.Run("malformed "+bad, func(t *testing.T) {
			_, err := naming.ParseTimeSeries(bad)
			require.ErrorIs(t, err, naming.ErrMalformedFilename)
		})
	}

	start, end, err := naming.TimeSeriesSpan([]string{"ts_186001_186912.nc", "pr_185001_185912.nc", "pr_186001_187012.nc"})
	require.NoError(t, err)
	require.Equal(t, 1850, start)
	require.Equal(t, 1870, end)
}

func TestParseClimo(t *testing.T) {
	c, err := naming.ParseClimo("v1/case_name_DJF_185001_185412_climo.nc")
	require.NoError(t, err)
	require.Equal(t, "case_name_", c.Prefix)
	require.Equal(t, "DJF", c.Label)
	require.Equal(t, naming.Period{Year: 1850, Month: 1}, c.Start)
	require.Equal(t, naming.Period{Year: 1854, Month: 12}, c.End)
	require.Equal(t, "case_name_DJF_185001_185412_climo.nc", c.String())

	c, err = naming.ParseClimo("case_07_185007_185407_climo.nc")
	require.NoError(t, err)
	require.Equal(t, "07", c.Label)

	_, err = naming.ParseClimo("case_XYZ_185001_185412_climo.nc")
	require.ErrorIs(t, err, naming.ErrMalformedFilename)

	require.Equal(t, "p_MAM_185003_185405_climo.nc",
		naming.ClimoFileName("p_", "MAM", naming.Period{Year: 1850, Month: 3}, naming.Period{Year: 1854, Month: 5}))
}

// Zero-padded dates make lexicographic order and chronological order agree.
func TestSortedIsChronological(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	periods := make([]naming.Period, 300)
	names := make([]string, len(periods))
	byName := make(map[string]naming.Period, len(periods))
	for i := range periods {
		p := naming.Period{Year: rng.IntN(10000), Month: 1 + rng.IntN(12)}
		periods[i] = p
		names[i] = fmt.Sprintf("some/dir/case.eam.h0.%04d-%02d.nc", p.Year, p.Month)
		byName[naming.Base(names[i])] = p
	}

	sorted := naming.Sorted(names)
	require.Len(t, sorted, len(names))
	for i := 1; i < len(sorted); i++ {
		require.False(t, byName[sorted[i]].Before(byName[sorted[i-1]]),
			"%s sorted after %s", sorted[i], sorted[i-1])
	}
	// input untouched
	require.Equal(t, fmt.Sprintf("some/dir/case.eam.h0.%04d-%02d.nc", periods[0].Year, periods[0].Month), names[0])
}
