package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	EntitiesCreated    uint64
	EntitiesUpdated    uint64
	EntitiesDeleted    uint64
	CollectionsCleared uint64
	UsersDeleted       uint64
	Conflicts          uint64
	NotFound           uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	entitiesCreated    atomic.Uint64
	entitiesUpdated    atomic.Uint64
	entitiesDeleted    atomic.Uint64
	collectionsCleared atomic.Uint64
	usersDeleted       atomic.Uint64
	conflicts          atomic.Uint64
	notFound           atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		EntitiesCreated:    m.entitiesCreated.Load(),
		EntitiesUpdated:    m.entitiesUpdated.Load(),
		EntitiesDeleted:    m.entitiesDeleted.Load(),
		CollectionsCleared: m.collectionsCleared.Load(),
		UsersDeleted:       m.usersDeleted.Load(),
		Conflicts:          m.conflicts.Load(),
		NotFound:           m.notFound.Load(),
	}
}

// IncEntityCreated increments the entity created counter.
func (m *InMemoryRecorder) IncEntityCreated() { m.entitiesCreated.Add(1) }

// IncEntityUpdated increments the entity updated counter.
func (m *InMemoryRecorder) IncEntityUpdated() { m.entitiesUpdated.Add(1) }

// IncEntityDeleted increments the entity deleted counter.
func (m *InMemoryRecorder) IncEntityDeleted() { m.entitiesDeleted.Add(1) }

// IncCollectionCleared increments the collection cleared counter.
func (m *InMemoryRecorder) IncCollectionCleared() { m.collectionsCleared.Add(1) }

// IncUserDeleted increments the user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() { m.usersDeleted.Add(1) }

// IncConflict increments the conflict counter.
func (m *InMemoryRecorder) IncConflict() { m.conflicts.Add(1) }

// IncNotFound increments the not found counter.
func (m *InMemoryRecorder) IncNotFound() { m.notFound.Add(1) }
