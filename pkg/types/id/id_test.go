package id_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/types/id"
)

func TestID(t *testing.T) {
	t.Run("parses its own string form", func(t *testing.T) {
		i := id.New()
		parsed, err := id.Parse(i.String())
		require.NoError(t, err)
		require.Equal(t, i, parsed)
	})

	t.Run("stores Nil as NULL", func(t *testing.T) {
		v, err := id.Nil.Value()
		require.NoError(t, err)
		require.Nil(t, v)

		var scanned id.ID
		require.NoError(t, scanned.Scan(nil))
		require.Equal(t, id.Nil, scanned)
	})

	t.Run("scans strings and bytes", func(t *testing.T) {
		i := id.New()
		var fromString, fromBytes id.ID
		require.NoError(t, fromString.Scan(i.String()))
		require.NoError(t, fromBytes.Scan([]byte(i.String())))
		require.Equal(t, i, fromString)
		require.Equal(t, i, fromBytes)
	})

	t.Run("rejects other types", func(t *testing.T) {
		var scanned id.ID
		require.Error(t, scanned.Scan(int64(4)))
	})
}
