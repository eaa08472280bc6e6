package internal

import "fmt"

// Task is the handle a reaction body returns: either already complete, or
// completing later on another goroutine.
type Task interface {
	Done() <-chan struct{}
	Result() ([]any, error)
}

type task struct {
	done   chan struct{}
	values []any
	err    error
}

func (t *task) Done() <-chan struct{} { return t.done }

// Result must only be called once Done is closed.
func (t *task) Result() ([]any, error) { return t.values, t.err }

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func Completed(values []any, err error) Task {
	return &task{done: closed, values: values, err: err}
}

// Go runs fn on its own goroutine. A panic in fn fails the task with a *PanicError.
func Go(fn func() ([]any, error)) Task {
	t := &task{done: make(chan struct{})}

	go func() {
		defer close(t.done)
		t.values, t.err = Protect(fn)
	}()

	return t
}

// Protect calls fn, converting a panic into a *PanicError.
func Protect(fn func() ([]any, error)) (values []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, &PanicError{Value: r}
		}
	}()

	return fn()
}

func isDone(t Task) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

func taskOrFail(t Task) Task {
	if t == nil {
		return Completed(nil, fmt.Errorf("body returned a nil task"))
	}
	return t
}
