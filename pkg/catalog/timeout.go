package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/e3sm/warehouse/internal/ctxutil"
	"github.com/e3sm/warehouse/pkg/dataset"
)

// ErrLookupTimeout is the cause of a lookup cancelled by [WithTimeout].
var ErrLookupTimeout = errors.New("catalog lookup timed out")

type timeoutCatalog struct {
	inner   dataset.Catalog
	timeout time.Duration
}

// WithTimeout bounds every lookup of c by d. A lookup that takes longer
// fails with an error matching both [ErrLookupTimeout] and
// [context.DeadlineExceeded], even if c ignores its context. A zero d
// returns c unchanged.
func WithTimeout(c dataset.Catalog, d time.Duration) dataset.Catalog {
	if d <= 0 {
		return c
	}
	return &timeoutCatalog{inner: c, timeout: d}
}

func (c *timeoutCatalog) Lookup(ctx context.Context, datasetID string) ([]string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, ErrLookupTimeout)
	defer cancel()

	type result struct {
		files []string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		files, err := c.inner.Lookup(ctx, datasetID)
		done <- result{files, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, ctxutil.ErrorWithCause(r.err, ctx)
		}
		return r.files, nil
	case <-ctx.Done():
		log.Warnw("catalog lookup abandoned", "dataset", datasetID, "timeout", c.timeout, "err", context.Cause(ctx))
		return nil, fmt.Errorf("looking up %s: %w", datasetID, ctxutil.CausedError(ctx))
	}
}
