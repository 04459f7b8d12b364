package bettererrgroup_test

import (
	"errors"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/bettererrgroup"
)

func doSomePanicking() error {
	panic("test panic")
}

func TestGroup(t *testing.T) {
	t.Run("reports panics with the goroutine's stack", func(t *testing.T) {
		eg, ctx := bettererrgroup.WithContext(t.Context())
		eg.Go(doSomePanicking)
		err := eg.Wait()
		var pErr bettererrgroup.PanicError
		require.ErrorAs(t, err, &pErr)
		require.Equal(t, "test panic", pErr.Recovered())
		require.Regexp(t, regexp.MustCompile(`bettererrgroup_test\.doSomePanicking\(\)`), pErr.Stack())
		require.Contains(t, pErr.Error(), "panic: test panic")
		require.Contains(t, pErr.Error(), pErr.Stack())
		require.Error(t, ctx.Err(), "expected context to be canceled")
	})

	t.Run("names the task that panicked", func(t *testing.T) {
		eg, _ := bettererrgroup.WithContext(t.Context())
		eg.GoTask("E3SM.1_0.hist", func() error { panic("bad chunk") })
		var pErr bettererrgroup.PanicError
		require.ErrorAs(t, eg.Wait(), &pErr)
		require.Equal(t, "E3SM.1_0.hist", pErr.Task())
		require.Contains(t, pErr.Error(), "panic in E3SM.1_0.hist: bad chunk")
	})

	t.Run("unwraps panicked errors", func(t *testing.T) {
		sentinel := errors.New("boom")
		eg, _ := bettererrgroup.WithContext(t.Context())
		eg.Go(func() error { panic(sentinel) })
		require.ErrorIs(t, eg.Wait(), sentinel)
	})

	t.Run("honours the concurrency limit", func(t *testing.T) {
		eg, _ := bettererrgroup.WithContext(t.Context())
		eg.SetLimit(2)

		var running, maxRunning atomic.Int32
		for range 20 {
			eg.Go(func() error {
				n := running.Add(1)
				defer running.Add(-1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						return nil
					}
				}
			})
		}
		require.NoError(t, eg.Wait())
		require.LessOrEqual(t, maxRunning.Load(), int32(2))
	})
}
