package core

// Engine is the contract every matching backend satisfies.
//
// Submit applies one command and returns the events it produced, in
// emission order. It runs to completion and never blocks on I/O.
// Implementations are single-owner: callers must not share one engine
// across goroutines without external synchronization.
type Engine interface {
	Submit(cmd Command) []Event
	Reset()
	// Snapshot serializes the resting book. The bytes are accepted by
	// LoadSnapshot of any backend that speaks the same format version.
	Snapshot() ([]byte, error)
	// LoadSnapshot replaces engine state. On error the engine is left
	// exactly as it was.
	LoadSnapshot(data []byte) error
	Stats() map[string]string
}
