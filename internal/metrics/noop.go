package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncEntityCreated is a no-op.
func (n *NoopRecorder) IncEntityCreated() {}

// IncEntityUpdated is a no-op.
func (n *NoopRecorder) IncEntityUpdated() {}

// IncEntityDeleted is a no-op.
func (n *NoopRecorder) IncEntityDeleted() {}

// IncCollectionCleared is a no-op.
func (n *NoopRecorder) IncCollectionCleared() {}

// IncUserDeleted is a no-op.
func (n *NoopRecorder) IncUserDeleted() {}

// IncConflict is a no-op.
func (n *NoopRecorder) IncConflict() {}

// IncNotFound is a no-op.
func (n *NoopRecorder) IncNotFound() {}
