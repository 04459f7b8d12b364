package statuslog_test

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/statuslog"
	"github.com/e3sm/warehouse/pkg/types/timestamp"
)

const sample = `STAT:20210101000000:WAREHOUSE:Validate:Ready
COMM:dataset extracted from zstash

STAT:20210102030405:POSTPROCESS:Regrid:Engaged:ts:180x360_aave
STAT:bad
STAT::20210101000001::WAREHOUSE::Validate::Pass::
`

func TestParse(t *testing.T) {
	l, err := statuslog.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	require.Equal(t, []string{"COMM:dataset extracted from zstash", "STAT:bad"}, l.Comm)
	require.Len(t, l.Stat, 2)
	require.Len(t, l.Stat["WAREHOUSE"]["Validate"], 2)
	require.Equal(t, "Ready", l.Stat["WAREHOUSE"]["Validate"][0].Value)
	require.Equal(t, "20210101000001", l.Stat["WAREHOUSE"]["Validate"][1].Timestamp)
	require.Equal(t, "Pass", l.Stat["WAREHOUSE"]["Validate"][1].Value)
	require.Equal(t, "Engaged:ts:180x360_aave", l.Stat["POSTPROCESS"]["Regrid"][0].Value)
	require.Equal(t, 3, l.Len())

	latest, ok := l.Latest()
	require.True(t, ok)
	require.Equal(t, "20210102030405", latest.Timestamp)
	require.Equal(t, "Regrid:Engaged:ts:180x360_aave", latest.Value)

	when, err := latest.Time()
	require.NoError(t, err)
	require.Equal(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC), when.UTC())
}

func TestLatest(t *testing.T) {
	t.Run("empty log", func(t *testing.T) {
		_, ok := statuslog.New().Latest()
		require.False(t, ok)
	})

	t.Run("later line wins a tie", func(t *testing.T) {
		l, err := statuslog.Parse(strings.NewReader(
			"STAT:20210101000000:B:Second:Ready\n" +
				"STAT:20210101000000:A:First:Ready\n"))
		require.NoError(t, err)
		latest, ok := l.Latest()
		require.True(t, ok)
		require.Equal(t, "First:Ready", latest.Value)
	})

	// String order of the fixed-width log timestamps is chronological order.
	t.Run("string order is chronological", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		times := make([]time.Time, 200)
		var b strings.Builder
		for i := range times {
			times[i] = time.Date(1000+rng.IntN(9000), time.Month(1+rng.IntN(12)), 1+rng.IntN(28),
				rng.IntN(24), rng.IntN(60), rng.IntN(60), 0, time.UTC)
			rec := statuslog.Record{
				Timestamp: timestamp.New(times[i]),
				Major:     "M",
				Minor:     "m",
				Status:    "S",
			}
			b.WriteString(rec.String() + "\n")
		}
		l, err := statuslog.Parse(strings.NewReader(b.String()))
		require.NoError(t, err)

		latest, ok := l.Latest()
		require.True(t, ok)
		require.Equal(t, timestamp.New(slices.MaxFunc(times, time.Time.Compare)).LogString(), latest.Timestamp)
	})
}

func TestRecord(t *testing.T) {
	ts := timestamp.New(time.Date(2022, 7, 8, 9, 10, 11, 0, time.UTC))
	r := statuslog.Record{Timestamp: ts, Major: "VALIDATION", Minor: "Completeness", Status: "PARTIAL", Args: []string{"missing=3"}}
	require.NoError(t, r.Validate())
	require.Equal(t, "STAT:20220708091011:VALIDATION:Completeness:PARTIAL:missing=3", r.String())

	l, err := statuslog.Parse(strings.NewReader(r.String()))
	require.NoError(t, err)
	require.Equal(t, []statuslog.Entry{{Timestamp: "20220708091011", Value: "PARTIAL:missing=3"}},
		stripLines(l.Stat["VALIDATION"]["Completeness"]))

	invalid := []statuslog.Record{
		{Major: "A", Minor: "B", Status: "C"},
		{Timestamp: ts, Major: "", Minor: "B", Status: "C"},
		{Timestamp: ts, Major: "A", Minor: "B:x", Status: "C"},
		{Timestamp: ts, Major: "A", Minor: "B", Status: "C", Args: []string{""}},
		{Timestamp: ts, Major: "A", Minor: "B", Status: "C\n"},
	}
	for _, r := range invalid {
		require.ErrorIs(t, r.Validate(), statuslog.ErrInvalidRecord, "%+v", r)
	}

	require.Equal(t, "COMM:two lines", statuslog.Comment("two\nlines"))
}

// stripLines drops the unexported line numbers so entries compare by value.
func stripLines(entries []statuslog.Entry) []statuslog.Entry {
	out := make([]statuslog.Entry, len(entries))
	for i, e := range entries {
		out[i] = statuslog.Entry{Timestamp: e.Timestamp, Value: e.Value}
	}
	return out
}

func TestLoadAndAppend(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/warehouse/E3SM/1_0/hist/v1"
	require.NoError(t, fsys.MkdirAll(dir, 0o755))

	l, err := statuslog.Load(fsys, dir)
	require.NoError(t, err)
	require.Zero(t, l.Len())
	require.Empty(t, l.Comm)

	ts := timestamp.New(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, statuslog.AppendRecord(fsys, dir, statuslog.Record{Timestamp: ts, Major: "VALIDATION", Minor: "Completeness", Status: "SUCCESS"}))
	require.NoError(t, statuslog.Append(fsys, dir, statuslog.Comment("checked by hand")))

	data, err := afero.ReadFile(fsys, dir+"/"+statuslog.FileName)
	require.NoError(t, err)
	require.Equal(t, "STAT:20230102030405:VALIDATION:Completeness:SUCCESS\nCOMM:checked by hand\n", string(data))

	l, err = statuslog.Load(fsys, dir)
	require.NoError(t, err)
	latest, ok := l.Latest()
	require.True(t, ok)
	require.Equal(t, "Completeness:SUCCESS", latest.Value)
	require.Equal(t, []string{"COMM:checked by hand"}, l.Comm)

	require.Error(t, statuslog.Append(fsys, dir, "two\nlines"))
	require.ErrorIs(t, statuslog.AppendRecord(fsys, dir, statuslog.Record{}), statuslog.ErrInvalidRecord)
}
