// Package bettererrgroup runs one task per goroutine like errgroup, but turns
// a panicking task into an error that names the task and carries its stack.
package bettererrgroup

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Group wraps an [errgroup.Group]. A plain errgroup lets a panic crash the
// process with the stack of Wait; here it ends the group with a [PanicError].
type Group struct {
	*errgroup.Group
}

func WithContext(ctx context.Context) (*Group, context.Context) {
	group, ctx := errgroup.WithContext(ctx)
	return &Group{Group: group}, ctx
}

// PanicError is returned by Wait when a task panicked.
type PanicError struct {
	task      string
	recovered any
	stack     string
}

func (e PanicError) Error() string {
	if e.task == "" {
		return fmt.Sprintf("panic: %v\n%s", e.recovered, e.stack)
	}
	return fmt.Sprintf("panic in %s: %v\n%s", e.task, e.recovered, e.stack)
}

// Unwrap returns the recovered value if it was an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.recovered.(error); ok {
		return err
	}
	return nil
}

// Task names the task that panicked, if it was started with [Group.GoTask].
func (e PanicError) Task() string   { return e.task }
func (e PanicError) Recovered() any { return e.recovered }
func (e PanicError) Stack() string  { return e.stack }

// Go runs f in a new goroutine, converting a panic into a [PanicError].
func (g *Group) Go(f func() error) {
	g.GoTask("", f)
}

// GoTask is Go with a name for the task, reported by [PanicError.Task].
func (g *Group) GoTask(task string, f func() error) {
	g.Group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = PanicError{task: task, recovered: r, stack: string(debug.Stack())}
			}
		}()
		return f()
	})
}
