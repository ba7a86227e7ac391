package events

// Event represents a structured state change emitted by a core module.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC feed, indexers,
// notification senders). Emission is best-effort from the emitting module's
// point of view but is never skipped on a successful transition.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for engines constructed without a subscriber.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
