package internal

import "github.com/zoobzio/capitan"

// Registration signals.
var (
	// ReactionRegistered is emitted when a reaction enters the registration table.
	ReactionRegistered = capitan.NewSignal(
		"observe.reaction.registered",
		"Reaction registered",
	)

	// ReactionUnregistered is emitted when a reaction leaves the registration table.
	ReactionUnregistered = capitan.NewSignal(
		"observe.reaction.unregistered",
		"Reaction unregistered",
	)

	// ReactionRejected is emitted when a registration fails validation.
	ReactionRejected = capitan.NewSignal(
		"observe.reaction.rejected",
		"Reaction registration rejected",
	)
)

// Dispatch signals.
var (
	// ReactionFailed is emitted when a reaction body returns an error or panics.
	ReactionFailed = capitan.NewSignal(
		"observe.reaction.failed",
		"Reaction callback failed",
	)

	// DispatchSettled is emitted when a dispatch drains and the engine goes idle.
	DispatchSettled = capitan.NewSignal(
		"observe.dispatch.settled",
		"Dispatch settled",
	)
)

// App lifecycle signals.
var (
	// AppActivated is emitted when an app starts dispatching.
	AppActivated = capitan.NewSignal(
		"observe.app.activated",
		"App activated",
	)

	// AppDeactivated is emitted when an app stops dispatching.
	AppDeactivated = capitan.NewSignal(
		"observe.app.deactivated",
		"App deactivated",
	)
)
