package platform

import "context"

// AdapterMeta describes one connected platform endpoint.
type AdapterMeta struct {
	ID       string
	Platform Platform
	Name     string
}

// Adapter is the outbound half of a platform connection. Inbound traffic is
// produced by the adapter itself (it builds Events and enqueues them); the
// pipeline only ever calls back through Send.
type Adapter interface {
	Meta() AdapterMeta

	// Send delivers reply segments for the event's conversation. An empty
	// segment slice is the explicit end-of-turn signal for adapters that
	// require one.
	Send(ctx context.Context, ev *Event, segments []Segment) error

	// RequiresTurnEnd reports whether the platform holds a client waiting
	// for a reply and must receive an empty Send when a pipeline run
	// produces no content.
	RequiresTurnEnd() bool
}
