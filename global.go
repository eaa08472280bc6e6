package observe

import (
	"slices"
	"sync"

	"github.com/AnatoleLucet/observe/internal"
)

// Declaration is a reaction declared at package level with When.
// It is registered in every app activated while it exists.
type Declaration struct {
	name string
	body Body
	deps []Dependency
}

func (d *Declaration) Name() string { return d.name }

var global struct {
	mu    sync.Mutex
	decls []*Declaration
}

// When declares a reaction for all apps, bound to each one on Activate and
// unbound on Deactivate. The declaration is validated on its own right away;
// conflicts with an app's table are reported by that app's Activate.
func When(body Body, deps ...Dependency) (*Declaration, error) {
	r := newReaction(body, deps)
	if err := internal.Validate(r); err != nil {
		return nil, err
	}

	d := &Declaration{name: r.Name, body: body, deps: slices.Clone(deps)}

	global.mu.Lock()
	global.decls = append(global.decls, d)
	global.mu.Unlock()

	return d, nil
}

// Remove stops the declaration from being bound by later activations.
// Apps that are already active keep it until they deactivate.
func (d *Declaration) Remove() {
	global.mu.Lock()
	defer global.mu.Unlock()

	global.decls = slices.DeleteFunc(global.decls, func(other *Declaration) bool {
		return other == d
	})
}

func declarations() []*Declaration {
	global.mu.Lock()
	defer global.mu.Unlock()

	return slices.Clone(global.decls)
}
