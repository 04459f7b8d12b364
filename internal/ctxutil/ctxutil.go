// Package ctxutil reports why a context ended. Catalog lookups are bounded by
// contexts carrying a cause, and the cause is what users need to see.
package ctxutil

import (
	"context"
	"errors"
	"fmt"
)

// CausedError returns nil while ctx is live. Once it is done, it returns
// ctx.Err(), wrapped together with the cause if one was given, so that both
// match with [errors.Is].
func CausedError(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if cause == err {
		return err
	}
	return fmt.Errorf("%w -- Caused by: %w", err, cause)
}

// ErrorWithCause adds the cause of ctx to err, when err came from ctx ending
// but does not mention the cause yet. Other errors, including nil, are
// returned unchanged.
func ErrorWithCause(err error, ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause != nil && errors.Is(err, ctx.Err()) && !errors.Is(err, cause) {
		return fmt.Errorf("%w -- Caused by: %w", err, cause)
	}
	return err
}
