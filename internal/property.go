package internal

import (
	"fmt"
	"reflect"
	"sync"
)

// Property is an observable value owned by an element.
// Writes that change the value are reported to the runtime the element is mounted in.
type Property struct {
	owner *Element
	name  string

	// nil accepts any value
	typ reflect.Type

	mu    sync.RWMutex
	value any
}

func (p *Property) Name() string { return p.name }

func (p *Property) Ref() Ref {
	return Ref{p.owner.id, p.name}
}

func (p *Property) Value() any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.value
}

// Write stores v and notifies a modified firing, unless v equals the current value.
func (p *Property) Write(v any) bool {
	p.mu.Lock()
	old := p.value
	if isEqual(old, v) {
		p.mu.Unlock()
		return false
	}
	p.value = v
	p.mu.Unlock()

	if rt := p.owner.runtime(); rt != nil {
		rt.Notify(Firing{
			Kind: KindModified,
			Ref:  p.Ref(),
			Old:  old,
			New:  v,
		})
	}

	return true
}

// Assign is Write for values coming from outside the property's typed wrapper.
func (p *Property) Assign(v any) (bool, error) {
	if !p.accepts(v) {
		return false, fmt.Errorf("%w: %s holds %s, got %T", ErrPropertyType, p.Ref(), p.typ, v)
	}
	return p.Write(v), nil
}

func (p *Property) accepts(v any) bool {
	if p.typ == nil {
		return true
	}
	if v == nil {
		switch p.typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(p.typ)
}

func isEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	va := reflect.ValueOf(a)
	if va.Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}

	return reflect.DeepEqual(a, b)
}
