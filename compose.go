package observe

import "github.com/AnatoleLucet/observe/internal"

// Builder is handed to Composer.Compose. Reactions declared through it belong
// to the element being mounted and are unregistered when it unmounts.
type Builder struct {
	app   *App
	el    *Element
	owner *internal.Owner
}

func (b *Builder) Element() *Element { return b.el }

func (b *Builder) App() *App { return b.app }

// When is App.When scoped to the element. The reaction name is prefixed with
// the element id, so each instance of a widget type can register the same method.
func (b *Builder) When(body Body, deps ...Dependency) (*Handle, error) {
	r := newReaction(body, deps)
	r.Name = b.el.ID() + "/" + r.Name

	return b.app.register(r, b.owner)
}

// OnCleanup runs fn when the element unmounts.
func (b *Builder) OnCleanup(fn func()) {
	b.owner.OnCleanup(fn)
}

// OnError handles callback errors of the element's reactions that no Raised reaction handled.
func (b *Builder) OnError(fn func(error)) {
	b.owner.OnError(fn)
}
