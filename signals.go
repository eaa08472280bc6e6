package observe

import "github.com/AnatoleLucet/observe/internal"

// Signals emitted through capitan. Hook them to observe an app from outside.
var (
	ReactionRegistered   = internal.ReactionRegistered
	ReactionUnregistered = internal.ReactionUnregistered
	ReactionRejected     = internal.ReactionRejected
	ReactionFailed       = internal.ReactionFailed
	DispatchSettled      = internal.DispatchSettled
	AppActivated         = internal.AppActivated
	AppDeactivated       = internal.AppDeactivated
)

// Field keys carried by the signals.
var (
	KeyReaction   = internal.KeyReaction
	KeyTrigger    = internal.KeyTrigger
	KeyBatch      = internal.KeyBatch
	KeyError      = internal.KeyError
	KeyWaves      = internal.KeyWaves
	KeyReactions  = internal.KeyReactions
	KeyElements   = internal.KeyElements
	KeyTotalWaves = internal.KeyTotalWaves
	KeyPending    = internal.KeyPending
)
