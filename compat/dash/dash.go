// Package dash declares reactions with the vocabulary of Plotly Dash callbacks:
// Input, State and Output instead of Modified, Select and Update.
package dash

import (
	"context"
	"reflect"
	"runtime"
	"slices"

	"github.com/AnatoleLucet/observe"
)

// Input fires the callback when the property changes.
func Input(id, property string) observe.Trigger {
	return observe.Modified(id, property)
}

// InputEvent fires the callback when the element posts an event of type E.
func InputEvent[E any](id string) observe.Trigger {
	return observe.Published[E](id)
}

// State is passed to the callback without firing it.
func State(id, property string) observe.Selection {
	return observe.Select(id, property)
}

func Output(id, property string) observe.Output {
	return observe.Update(id, property)
}

// Func receives the inputs in declaration order followed by the states,
// and returns one value per output.
type Func func(args ...any) ([]any, error)

// App is an observe.App with Dash naming.
type App struct {
	*observe.App
}

func NewApp(opts ...observe.Option) (*App, error) {
	app, err := observe.NewApp(opts...)
	if err != nil {
		return nil, err
	}
	return &App{app}, nil
}

func (a *App) Callback(fn Func, deps ...observe.Dependency) (*observe.Handle, error) {
	return Callback(a.App, fn, deps...)
}

// Callback registers fn on app. The reaction is named after fn unless deps
// carry an observe.Named option. Closures created from the same function
// literal share one name, so callbacks made in a loop need observe.Named.
func Callback(app *observe.App, fn Func, deps ...observe.Dependency) (*observe.Handle, error) {
	if fn == nil {
		return app.When(observe.Body{}, deps...)
	}

	body := observe.Sync(func(ctx context.Context, c *observe.Call) ([]any, error) {
		args := append(slices.Clone(c.Inputs), c.Selects...)
		return fn(args...)
	})

	deps = append([]observe.Dependency{observe.Named(name(fn))}, deps...)
	return app.When(body, deps...)
}

func name(fn Func) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "dash.callback"
	}
	return f.Name()
}
