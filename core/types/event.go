package types

// Event represents a typed event emitted during state transitions. Attributes
// are flat strings so downstream indexers and notification senders can consume
// them without knowing the emitting module's Go types.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
