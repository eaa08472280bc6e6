package observe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type validationError struct{ field string }

func (e *validationError) Error() string { return "invalid " + e.field }

func TestFailures(t *testing.T) {
	t.Run("unhandled errors are suppressed and siblings still apply", func(t *testing.T) {
		caught := []string{}
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		b := NewElement("B")
		left := NewProperty(b, "left", "")
		right := NewProperty(b, "right", "")
		require.NoError(t, app.Mount(a, b))

		app.OnError(func(err error) {
			caught = append(caught, err.Error())
		})

		_, err := app.When(format("left %v"), n.Modified(), left.Update(), Named("left"))
		require.NoError(t, err)

		_, err = app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			return nil, errBoom
		}), n.Modified(), Update("B", "middle"), Named("broken"))
		require.NoError(t, err)

		_, err = app.When(format("right %v"), n.Modified(), right.Update(), Named("right"))
		require.NoError(t, err)

		activate(t, app)
		assert.NotPanics(t, func() { n.Set(1) })

		assert.Equal(t, "left 1", left.Get())
		assert.Equal(t, "right 1", right.Get())
		assert.Equal(t, []string{"reaction broken: boom"}, caught)

		errs := app.Errors()
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], errBoom)
	})

	t.Run("errors are raised to matching reactions", func(t *testing.T) {
		log := []string{}
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		b := NewElement("B")
		status := NewProperty(b, "status", "ok")
		require.NoError(t, app.Mount(a, b))

		caught := 0
		app.OnError(func(error) { caught++ })

		_, err := app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			return nil, fmt.Errorf("loading %d: %w", Input[int](c, 0), errBoom)
		}), n.Modified(), Named("loader"))
		require.NoError(t, err)

		_, err = app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			log = append(log, fmt.Sprintf("from %s", c.Trigger().Source))
			return []any{"failed: " + Input[error](c, 0).Error()}, nil
		}), Raised(errBoom), status.Update(), Named("on boom"))
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Equal(t, "failed: loading 1: boom", status.Get())
		assert.Equal(t, []string{"from loader"}, log)
		assert.Zero(t, caught, "handled errors do not reach OnError")
	})

	t.Run("panics become raised errors", func(t *testing.T) {
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		b := NewElement("B")
		status := NewProperty(b, "status", "")
		require.NoError(t, app.Mount(a, b))

		_, err := app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			panic("kaboom")
		}), n.Modified(), Named("panics"))
		require.NoError(t, err)

		_, err = app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			var p *PanicError
			require.True(t, errors.As(Input[error](c, 0), &p))
			return []any{fmt.Sprint(p.Value)}, nil
		}), RaisedAs[*PanicError](), status.Update())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Equal(t, "kaboom", status.Get())
	})

	t.Run("panics in suspending bodies are caught", func(t *testing.T) {
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		require.NoError(t, app.Mount(a))

		_, err := app.When(Async(func(ctx context.Context, c *Call) ([]any, error) {
			panic(errBoom)
		}), n.Modified())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)
		settle(t, app)

		errs := app.Errors()
		require.Len(t, errs, 1)

		var p *PanicError
		assert.True(t, errors.As(errs[0], &p))
		assert.ErrorIs(t, errs[0], errBoom)
	})

	t.Run("raised by type", func(t *testing.T) {
		log := []string{}
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		require.NoError(t, app.Mount(a))

		_, err := app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			return nil, fmt.Errorf("checking: %w", &validationError{"n"})
		}), n.Modified())
		require.NoError(t, err)

		_, err = app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			var v *validationError
			errors.As(Input[error](c, 0), &v)
			log = append(log, v.field)
			return nil, nil
		}), RaisedAs[*validationError]())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Equal(t, []string{"n"}, log)
	})

	t.Run("errors of raised handlers are not raised again", func(t *testing.T) {
		calls := 0
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		require.NoError(t, app.Mount(a))

		_, err := app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			return nil, errBoom
		}), n.Modified(), Named("source"))
		require.NoError(t, err)

		_, err = app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			calls++
			return nil, fmt.Errorf("still: %w", errBoom)
		}), Raised(errBoom), Named("handler"))
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Equal(t, 1, calls)
		assert.Len(t, app.Errors(), 2)
	})

	t.Run("output count mismatch", func(t *testing.T) {
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		b := NewElement("B")
		x := NewProperty(b, "x", 0)
		y := NewProperty(b, "y", 0)
		require.NoError(t, app.Mount(a, b))

		_, err := app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			return []any{1}, nil
		}), n.Modified(), x.Update(), y.Update())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Equal(t, 0, x.Get())
		require.Len(t, app.Errors(), 1)
		assert.ErrorIs(t, app.Errors()[0], ErrOutputArity)
	})

	t.Run("nil task", func(t *testing.T) {
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		require.NoError(t, app.Mount(a))

		_, err := app.When(Func(func(ctx context.Context, c *Call) Task {
			return nil
		}), n.Modified())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Len(t, app.Errors(), 1)
	})

	t.Run("suspending bodies time out", func(t *testing.T) {
		app := newApp(t, WithTaskTimeout(10*time.Millisecond))

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		b := NewElement("B")
		text := NewProperty(b, "text", "initial")
		require.NoError(t, app.Mount(a, b))

		release := make(chan struct{})
		t.Cleanup(func() { close(release) })

		_, err := app.When(Async(func(ctx context.Context, c *Call) ([]any, error) {
			<-release
			return []any{"late"}, nil
		}), n.Modified(), text.Update())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)
		settle(t, app)

		assert.Equal(t, "initial", text.Get())
		require.Len(t, app.Errors(), 1)
		assert.ErrorIs(t, app.Errors()[0], ErrTaskTimeout)
	})

	t.Run("func bodies choose per call", func(t *testing.T) {
		app := newApp(t)

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		b := NewElement("B")
		text := NewProperty(b, "text", "")
		require.NoError(t, app.Mount(a, b))

		_, err := app.When(Func(func(ctx context.Context, c *Call) Task {
			v := Input[int](c, 0)
			switch {
			case v < 0:
				return Fail(errBoom)
			case v%2 == 0:
				return Done(fmt.Sprintf("sync %d", v))
			default:
				return Go(func() ([]any, error) {
					return []any{fmt.Sprintf("async %d", v)}, nil
				})
			}
		}), n.Modified(), text.Update())
		require.NoError(t, err)

		activate(t, app)

		n.Set(2)
		assert.Equal(t, "sync 2", text.Get())

		n.Set(3)
		settle(t, app)
		assert.Equal(t, "async 3", text.Get())

		n.Set(-1)
		assert.Equal(t, "async 3", text.Get())
		assert.Len(t, app.Errors(), 1)
	})

	t.Run("error history can be disabled", func(t *testing.T) {
		app := newApp(t, WithErrorHistory(0))

		a := NewElement("A")
		n := NewProperty(a, "n", 0)
		require.NoError(t, app.Mount(a))

		_, err := app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
			return nil, errBoom
		}), n.Modified())
		require.NoError(t, err)

		activate(t, app)
		n.Set(1)

		assert.Empty(t, app.Errors())
	})
}
