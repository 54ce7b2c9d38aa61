package events

// Event represents a structured state change emitted by the jar module.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines until the host installs a real sink.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// CollectEmitter records every emitted event in order. Tests use it to assert
// on the telemetry side of a state transition.
type CollectEmitter struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (c *CollectEmitter) Emit(e Event) {
	c.Events = append(c.Events, e)
}
