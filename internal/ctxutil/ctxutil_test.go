package ctxutil_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/internal/ctxutil"
	"github.com/e3sm/warehouse/pkg/catalog"
)

func expired(t *testing.T) context.Context {
	ctx, cancel := context.WithDeadlineCause(context.Background(), time.Now().Add(-time.Second), catalog.ErrLookupTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestCausedError(t *testing.T) {
	require.NoError(t, ctxutil.CausedError(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, ctxutil.CausedError(ctx))

	err := ctxutil.CausedError(expired(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, catalog.ErrLookupTimeout)
	require.Equal(t, "context deadline exceeded -- Caused by: catalog lookup timed out", err.Error())
}

func TestErrorWithCause(t *testing.T) {
	listFailed := errors.New("listing bucket: access denied")

	testCases := []struct {
		name      string
		err       error
		wantCause bool
	}{
		{"nil stays nil", nil, false},
		{"unrelated error is kept", listFailed, false},
		{"deadline gets the cause", fmt.Errorf("listing bucket: %w", context.DeadlineExceeded), true},
		{"cause is not added twice", ctxutil.CausedError(expired(t)), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ctxutil.ErrorWithCause(tc.err, expired(t))
			if !tc.wantCause {
				require.Equal(t, tc.err, err)
				return
			}
			require.ErrorIs(t, err, context.DeadlineExceeded)
			require.ErrorIs(t, err, catalog.ErrLookupTimeout)
			require.Equal(t, 1, strings.Count(err.Error(), "Caused by"))
		})
	}

	live := context.Background()
	require.Equal(t, listFailed, ctxutil.ErrorWithCause(listFailed, live))
}
