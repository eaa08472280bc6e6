package internal

import "github.com/zoobzio/capitan"

// Field keys for observer events.
var (
	// KeyReaction is the name of the reaction concerned.
	KeyReaction = capitan.NewStringKey("reaction")

	// KeyTrigger is the trigger key that fired.
	KeyTrigger = capitan.NewStringKey("trigger")

	// KeyBatch is the id of the dispatch batch.
	KeyBatch = capitan.NewStringKey("batch")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyWaves is the number of waves a dispatch took to settle.
	KeyWaves = capitan.NewIntKey("waves")

	// KeyReactions is the number of registered reactions.
	KeyReactions = capitan.NewIntKey("reactions")

	// KeyElements is the number of mounted elements.
	KeyElements = capitan.NewIntKey("elements")

	// KeyTotalWaves is the number of waves run since the app was created.
	KeyTotalWaves = capitan.NewIntKey("total_waves")

	// KeyPending is the number of suspending bodies not applied yet.
	KeyPending = capitan.NewIntKey("pending")
)
