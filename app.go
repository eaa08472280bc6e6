package observe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AnatoleLucet/observe/internal"
)

// State of the dispatch engine.
type State = internal.State

const (
	StateIdle      = internal.StateIdle
	StateResolving = internal.StateResolving
	StateInvoking  = internal.StateInvoking
	StateApplying  = internal.StateApplying
)

// App owns a registration table, the mounted elements and the dispatch loop.
// Firings are dropped until Activate and after Deactivate.
type App struct {
	rt *internal.Runtime

	mu sync.Mutex
	// scope of the global declarations bound by the current activation
	activation *internal.Owner
}

// NewApp builds an app from DefaultConfig and opts.
func NewApp(opts ...Option) (*App, error) {
	o := &options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	return &App{rt: internal.NewRuntime(o.settings())}, nil
}

// Handle identifies a registered reaction.
type Handle struct {
	rt       *internal.Runtime
	reaction *internal.Reaction
}

func (h *Handle) Name() string { return h.reaction.Name }

func (h *Handle) Active() bool { return h.reaction.Active() }

// Unregister removes the reaction. An invocation already running completes,
// but the reaction is not invoked again. It reports false if it was already removed.
func (h *Handle) Unregister() bool {
	return h.rt.Unregister(h.reaction)
}

// Reaction is a declaration that has not been registered yet.
type Reaction struct {
	Body Body
	Deps []Dependency
}

// When registers a reaction running body when any of the triggers in deps fires.
// The reaction lives until its handle is unregistered.
func (a *App) When(body Body, deps ...Dependency) (*Handle, error) {
	return a.register(newReaction(body, deps), nil)
}

func (a *App) Register(r Reaction) (*Handle, error) {
	return a.When(r.Body, r.Deps...)
}

func (a *App) register(r *internal.Reaction, owner *internal.Owner) (*Handle, error) {
	if err := a.rt.Register(r, owner); err != nil {
		return nil, err
	}
	return &Handle{a.rt, r}, nil
}

// Mount adds elements to the app, then composes the ones implementing Composer.
// If any element fails to mount or compose, the elements of this call are unmounted again.
func (a *App) Mount(nodes ...Mountable) error {
	mounted := make([]string, 0, len(nodes))
	rollback := func() {
		for _, id := range mounted {
			a.rt.Tree().Unmount(id)
		}
	}

	for _, node := range nodes {
		el := node.element()

		owner := internal.NewOwner()
		a.rt.Owner().AddChild(owner)

		if err := a.rt.Tree().Mount(a.rt, el.el, owner); err != nil {
			owner.Dispose()
			rollback()
			return err
		}
		mounted = append(mounted, el.ID())

		if c, ok := node.(Composer); ok {
			if err := c.Compose(&Builder{app: a, el: el, owner: owner}); err != nil {
				rollback()
				return fmt.Errorf("compose %q: %w", el.ID(), err)
			}
		}
	}

	return nil
}

// Unmount removes elements by id along with the reactions they composed.
func (a *App) Unmount(ids ...string) error {
	var errs []error
	for _, id := range ids {
		if !a.rt.Tree().Unmount(id) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownElement, id))
		}
	}
	return errors.Join(errs...)
}

// Element returns the mounted element with the given id.
func (a *App) Element(id string) (*Element, bool) {
	el, ok := a.rt.Tree().Get(id)
	if !ok {
		return nil, false
	}
	return &Element{el}, true
}

// Activate binds the global declarations to the app and starts dispatching.
// ctx is handed to reaction bodies and canceled by Deactivate.
// Declarations that fail to bind are reported together; the others stay bound.
func (a *App) Activate(ctx context.Context) error {
	if a.rt.Active() {
		return nil
	}

	a.mu.Lock()
	a.activation = internal.NewOwner()
	a.rt.Owner().AddChild(a.activation)
	scope := a.activation
	a.mu.Unlock()

	var errs []error
	for _, d := range declarations() {
		if _, err := a.register(newReaction(d.body, d.deps), scope); err != nil {
			errs = append(errs, err)
		}
	}

	a.rt.Activate(ctx)

	return errors.Join(errs...)
}

// Deactivate stops dispatching and unbinds the global declarations.
// Reactions registered with When and by mounted elements are kept.
func (a *App) Deactivate() {
	a.rt.Deactivate()

	a.mu.Lock()
	scope := a.activation
	a.activation = nil
	a.mu.Unlock()

	if scope != nil {
		scope.Dispose()
	}
}

func (a *App) Active() bool { return a.rt.Active() }

// Post delivers event from the element with the given id.
func (a *App) Post(id string, event any) error {
	if !a.rt.Active() {
		return ErrInactive
	}

	el, ok := a.rt.Tree().Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}

	el.Post(event)
	return nil
}

// Set writes a property of a mounted element by reference.
func (a *App) Set(id, property string, value any) (bool, error) {
	if !a.rt.Active() {
		return false, ErrInactive
	}

	el, ok := a.Element(id)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}
	return el.Set(property, value)
}

// Batch runs fn and dispatches the firings it causes as a single wave.
func (a *App) Batch(fn func()) {
	a.rt.Batch(fn)
}

// Settle waits until no dispatch runs and every suspending body has been applied.
// Writes never wait for suspending bodies, so call Settle to observe their outputs.
// Bodies that call it must pass the context they received, which makes it return at once.
func (a *App) Settle(ctx context.Context) error {
	return a.rt.Settle(ctx)
}

func (a *App) State() State { return a.rt.State() }

// Pending returns how many suspending bodies have not been applied yet.
func (a *App) Pending() int { return a.rt.Pending() }

// Errors returns the most recent callback errors, oldest first.
func (a *App) Errors() []error { return a.rt.Errors() }

// OnError adds a handler for callback errors no Raised reaction handled.
func (a *App) OnError(fn func(error)) {
	a.rt.Owner().OnError(fn)
}

// Reactions lists the registered reaction names in registration order.
func (a *App) Reactions() []string {
	all := a.rt.Registry().All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	return names
}
