package store

import "sync"

// syncMap is a thread-safe generic map keyed by string.
// Every method holds the lock for a single map operation, so check-and-set
// variants are atomic with respect to each other.
type syncMap[T any] struct {
	mux    sync.RWMutex
	m      map[string]T
	sealed bool
}

func newSyncMap[T any]() *syncMap[T] {
	return &syncMap[T]{
		m: make(map[string]T),
	}
}

// Load retrieves an item by name.
func (s *syncMap[T]) Load(name string) (T, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	v, ok := s.m[name]
	return v, ok
}

// LoadOrStore returns the existing item for name if present.
// Otherwise it stores and returns the value produced by create.
func (s *syncMap[T]) LoadOrStore(name string, create func() T) T {
	s.mux.RLock()
	v, ok := s.m[name]
	s.mux.RUnlock()
	if ok {
		return v
	}

	s.mux.Lock()
	defer s.mux.Unlock()
	if v, ok := s.m[name]; ok {
		return v
	}
	v = create()
	s.m[name] = v
	return v
}

// StoreIfAbsent stores value only when name is not present and the map
// has not been sealed. It reports whether the value was stored.
func (s *syncMap[T]) StoreIfAbsent(name string, value T) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.sealed {
		return false
	}
	if _, ok := s.m[name]; ok {
		return false
	}
	s.m[name] = value
	return true
}

// Replace overwrites the value for name only when name is present.
// It reports whether the value was replaced.
func (s *syncMap[T]) Replace(name string, value T) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.m[name]; !ok {
		return false
	}
	s.m[name] = value
	return true
}

// Store adds or updates an item by name.
func (s *syncMap[T]) Store(name string, value T) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.m[name] = value
}

// Delete removes an item by name and reports whether it was present.
func (s *syncMap[T]) Delete(name string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.m[name]; !ok {
		return false
	}
	delete(s.m, name)
	return true
}

// LoadAndDelete removes an item by name and returns it.
func (s *syncMap[T]) LoadAndDelete(name string) (T, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	v, ok := s.m[name]
	if ok {
		delete(s.m, name)
	}
	return v, ok
}

// Seal makes every later StoreIfAbsent fail.
func (s *syncMap[T]) Seal() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.sealed = true
}

// Sealed reports whether Seal has been called.
func (s *syncMap[T]) Sealed() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.sealed
}

// Clear removes every item while keeping the map itself.
func (s *syncMap[T]) Clear() {
	s.mux.Lock()
	defer s.mux.Unlock()
	clear(s.m)
}

// Len returns the number of items.
func (s *syncMap[T]) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.m)
}

// Snapshot returns a shallow copy of the map.
func (s *syncMap[T]) Snapshot() map[string]T {
	s.mux.RLock()
	defer s.mux.RUnlock()
	cp := make(map[string]T, len(s.m))
	for k, v := range s.m {
		cp[k] = v
	}
	return cp
}
