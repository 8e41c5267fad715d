// Package store provides the in-memory entity store.
// Each user owns a collection of named JSON documents; both the user
// index and every collection are safe for concurrent use.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors for store operations.
var (
	ErrNotFound       = errors.New("not found")
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrEntityNotFound = fmt.Errorf("entity %w", ErrNotFound)
	ErrEntityExists   = errors.New("entity already exists")
)

// Entities maps entity names to their JSON documents.
type Entities map[string]json.RawMessage

// collection holds one user's entities.
type collection = syncMap[json.RawMessage]

// Store is a two-level map: user -> entity name -> JSON document.
// Stored values are never modified in place, so slices handed out by
// the read methods stay valid but must be treated as read-only.
type Store struct {
	users *syncMap[*collection]
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users: newSyncMap[*collection](),
	}
}

// GetUserEntities returns a copy of all entities owned by user.
func (s *Store) GetUserEntities(user string) (Entities, error) {
	c, ok := s.users.Load(user)
	if !ok {
		return nil, ErrUserNotFound
	}
	return Entities(c.Snapshot()), nil
}

// GetEntity returns the document stored under name for user.
func (s *Store) GetEntity(user, name string) (json.RawMessage, error) {
	c, ok := s.users.Load(user)
	if !ok {
		return nil, ErrUserNotFound
	}
	v, ok := c.Load(name)
	if !ok {
		return nil, ErrEntityNotFound
	}
	return v, nil
}

// ClearUserEntities removes every entity of user but keeps the user.
func (s *Store) ClearUserEntities(user string) error {
	c, ok := s.users.Load(user)
	if !ok {
		return ErrUserNotFound
	}
	c.Clear()
	return nil
}

// CreateEntity stores value under name, creating the user on first write.
// Returns ErrEntityExists without modifying anything if name is taken.
func (s *Store) CreateEntity(user, name string, value json.RawMessage) error {
	value = bytes.Clone(value)
	for {
		c := s.users.LoadOrStore(user, newSyncMap[json.RawMessage])
		if c.StoreIfAbsent(name, value) {
			return nil
		}
		// A sealed collection was detached by DeleteUser after we loaded
		// it; start over with the user's current collection.
		if !c.Sealed() {
			return ErrEntityExists
		}
	}
}

// UpdateEntity replaces an existing document. It never creates a user
// or an entity.
func (s *Store) UpdateEntity(user, name string, value json.RawMessage) error {
	c, ok := s.users.Load(user)
	if !ok {
		return ErrUserNotFound
	}
	if !c.Replace(name, bytes.Clone(value)) {
		return ErrEntityNotFound
	}
	return nil
}

// DeleteEntity removes a single entity from user's collection.
func (s *Store) DeleteEntity(user, name string) error {
	c, ok := s.users.Load(user)
	if !ok {
		return ErrUserNotFound
	}
	if !c.Delete(name) {
		return ErrEntityNotFound
	}
	return nil
}

// DeleteUser removes user and all of its entities. The detached
// collection is sealed so a concurrent CreateEntity cannot report
// success for a write that landed in it.
func (s *Store) DeleteUser(user string) error {
	c, ok := s.users.LoadAndDelete(user)
	if !ok {
		return ErrUserNotFound
	}
	c.Seal()
	return nil
}

// DumpAll returns a snapshot of every user and entity.
func (s *Store) DumpAll() map[string]Entities {
	users := s.users.Snapshot()
	out := make(map[string]Entities, len(users))
	for user, c := range users {
		out[user] = Entities(c.Snapshot())
	}
	return out
}

// Seed adds entities for user, overwriting documents with the same name.
func (s *Store) Seed(user string, entities Entities) {
	c := s.users.LoadOrStore(user, newSyncMap[json.RawMessage])
	for name, v := range entities {
		c.Store(name, bytes.Clone(v))
	}
}

// Stats holds store-wide counters.
type Stats struct {
	Users    int
	Entities int
}

// Stats counts users and entities. The result is approximate under
// concurrent writes.
func (s *Store) Stats() Stats {
	users := s.users.Snapshot()
	st := Stats{Users: len(users)}
	for _, c := range users {
		st.Entities += c.Len()
	}
	return st
}
