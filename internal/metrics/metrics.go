// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Entity mutations
	IncEntityCreated()
	IncEntityUpdated()
	IncEntityDeleted()

	// Collection and user mutations
	IncCollectionCleared()
	IncUserDeleted()

	// Rejected operations
	IncConflict()
	IncNotFound()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
