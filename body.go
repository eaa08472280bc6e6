package observe

import (
	"context"
	"reflect"
	"runtime"

	"github.com/AnatoleLucet/observe/internal"
)

// Call is what a reaction body receives: the firings that caused it,
// one input per trigger and one value per select.
type Call = internal.Call

// Firing is one occurrence of a trigger condition.
type Firing = internal.Firing

// Task is the handle a body returns, complete or still running.
type Task = internal.Task

// Body is the callable part of a reaction. Use Sync, Async or Func to build one.
type Body struct {
	name string
	run  internal.Body
}

// Sync runs fn inline on the dispatching goroutine.
//
// Reactions built from Sync, Async and Func are named after fn. Closures
// created from the same function literal share that name, so registering
// several of them needs Named (or AllowMultiple on each).
func Sync(fn func(ctx context.Context, c *Call) ([]any, error)) Body {
	if fn == nil {
		return Body{}
	}
	return Body{
		name: funcName(fn),
		run: func(ctx context.Context, c *Call) Task {
			return internal.Completed(fn(ctx, c))
		},
	}
}

// Async runs fn on its own goroutine. The write that triggered it returns
// without waiting; the outputs are applied by the dispatch running when fn
// returns, or by a new one.
func Async(fn func(ctx context.Context, c *Call) ([]any, error)) Body {
	if fn == nil {
		return Body{}
	}
	return Body{
		name: funcName(fn),
		run: func(ctx context.Context, c *Call) Task {
			return internal.Go(func() ([]any, error) { return fn(ctx, c) })
		},
	}
}

// Func wraps a body that decides per call whether it completes now (Done, Fail)
// or later (Go).
func Func(fn func(ctx context.Context, c *Call) Task) Body {
	return Body{name: funcName(fn), run: fn}
}

// Done is a completed task holding values.
func Done(values ...any) Task {
	return internal.Completed(values, nil)
}

// Fail is a completed task holding err.
func Fail(err error) Task {
	return internal.Completed(nil, err)
}

// Go runs fn on its own goroutine and returns its task.
func Go(fn func() ([]any, error)) Task {
	return internal.Go(fn)
}

// Input returns the i-th trigger input of c as a T, or T's zero value.
func Input[T any](c *Call, i int) T {
	return as[T](c.Inputs[i])
}

// Selected returns the i-th select value of c as a T, or T's zero value.
func Selected[T any](c *Call, i int) T {
	return as[T](c.Selects[i])
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}
