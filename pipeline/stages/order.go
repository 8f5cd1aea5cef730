// Package stages holds the built-in pipeline stages and their canonical
// order. Registration is an explicit build step: Default enumerates the
// stage constructors in the fixed order, so there is no import-time mutation
// to get wrong.
package stages

import "github.com/parleybot/parley/pipeline"

// Stage names, in canonical execution order.
const (
	NameAccess     = "access"
	NameThrottle   = "throttle"
	NameNormalize  = "normalize"
	NameRespond    = "respond"
	NameCommand    = "command"
	NameHistory    = "history"
	NameLLMRequest = "llm_request"
)

// Order is the total order over all known stage names. Schedulers built from
// Default always execute in this order.
var Order = []string{
	NameAccess,
	NameThrottle,
	NameNormalize,
	NameRespond,
	NameCommand,
	NameHistory,
	NameLLMRequest,
}

// Default returns factories for the full built-in stage list, in order.
func Default() []pipeline.Factory {
	return []pipeline.Factory{
		func() pipeline.Stage { return NewAccess() },
		func() pipeline.Stage { return NewThrottle() },
		func() pipeline.Stage { return NewNormalize() },
		func() pipeline.Stage { return NewRespond() },
		func() pipeline.Stage { return NewCommand() },
		func() pipeline.Stage { return NewHistory() },
		func() pipeline.Stage { return NewLLMRequest() },
	}
}
