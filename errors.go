package observe

import "github.com/AnatoleLucet/observe/internal"

// Registration errors.
var (
	ErrDuplicateReaction = internal.ErrDuplicateReaction
	ErrCyclicDependency  = internal.ErrCyclicDependency
	ErrSelfTrigger       = internal.ErrSelfTrigger
	ErrNoTrigger         = internal.ErrNoTrigger
	ErrDuplicateTrigger  = internal.ErrDuplicateTrigger
	ErrNoBody            = internal.ErrNoBody
)

// Mount errors.
var (
	ErrDuplicateElement = internal.ErrDuplicateElement
	ErrUnknownElement   = internal.ErrUnknownElement
	ErrUnknownProperty  = internal.ErrUnknownProperty
	ErrPropertyType     = internal.ErrPropertyType
)

// Dispatch errors. They are reported through Raised triggers, App.Errors and
// App.OnError, never returned to the code that caused the dispatch.
var (
	ErrOutputArity  = internal.ErrOutputArity
	ErrTaskTimeout  = internal.ErrTaskTimeout
	ErrCascadeLimit = internal.ErrCascadeLimit
	ErrInactive     = internal.ErrInactive
)

// ErrPreventUpdate returned by a body skips all its outputs without counting as a failure.
var ErrPreventUpdate = internal.ErrPreventUpdate

type (
	CyclicDependencyError = internal.CyclicDependencyError
	SelfTriggerError      = internal.SelfTriggerError
	UnknownElementError   = internal.UnknownElementError
	PanicError            = internal.PanicError
)
