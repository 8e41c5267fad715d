// Package service provides business logic for the application.
package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/swyw/swyw/internal/changefeed"
	"github.com/swyw/swyw/internal/metrics"
	"github.com/swyw/swyw/internal/store"
)

// Service errors. Store errors (store.ErrUserNotFound,
// store.ErrEntityNotFound, store.ErrEntityExists) are returned unchanged.
var (
	ErrInvalidJSON = errors.New("body is not valid JSON")
)

// EntityService handles entity business logic.
type EntityService struct {
	store     *store.Store
	metrics   metrics.Recorder
	publisher changefeed.Publisher
	now       func() time.Time
}

// NewEntityService creates a new EntityService.
// A nil recorder or publisher is replaced by its no-op implementation.
func NewEntityService(s *store.Store, recorder metrics.Recorder, publisher changefeed.Publisher) *EntityService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if publisher == nil {
		publisher = changefeed.NewNoop()
	}
	return &EntityService{
		store:     s,
		metrics:   recorder,
		publisher: publisher,
		now:       time.Now,
	}
}

// ListEntities returns every entity owned by user.
func (s *EntityService) ListEntities(user string) (store.Entities, error) {
	entities, err := s.store.GetUserEntities(user)
	return entities, s.observe(err)
}

// GetEntity returns a single entity document.
func (s *EntityService) GetEntity(user, name string) (json.RawMessage, error) {
	value, err := s.store.GetEntity(user, name)
	return value, s.observe(err)
}

// CreateEntity stores a new entity, creating the user if needed.
func (s *EntityService) CreateEntity(user, name string, value json.RawMessage) error {
	if !json.Valid(value) {
		return ErrInvalidJSON
	}
	if err := s.observe(s.store.CreateEntity(user, name, value)); err != nil {
		return err
	}

	s.metrics.IncEntityCreated()
	s.publish(changefeed.OpCreate, user, name, value)
	return nil
}

// UpdateEntity replaces the document of an existing entity.
func (s *EntityService) UpdateEntity(user, name string, value json.RawMessage) error {
	if !json.Valid(value) {
		return ErrInvalidJSON
	}
	if err := s.observe(s.store.UpdateEntity(user, name, value)); err != nil {
		return err
	}

	s.metrics.IncEntityUpdated()
	s.publish(changefeed.OpUpdate, user, name, value)
	return nil
}

// DeleteEntity removes one entity.
func (s *EntityService) DeleteEntity(user, name string) error {
	if err := s.observe(s.store.DeleteEntity(user, name)); err != nil {
		return err
	}

	s.metrics.IncEntityDeleted()
	s.publish(changefeed.OpDelete, user, name, nil)
	return nil
}

// ClearEntities empties the user's collection but keeps the user.
func (s *EntityService) ClearEntities(user string) error {
	if err := s.observe(s.store.ClearUserEntities(user)); err != nil {
		return err
	}

	s.metrics.IncCollectionCleared()
	s.publish(changefeed.OpClear, user, "", nil)
	return nil
}

// DeleteUser removes the user and all of its entities.
func (s *EntityService) DeleteUser(user string) error {
	if err := s.observe(s.store.DeleteUser(user)); err != nil {
		return err
	}

	s.metrics.IncUserDeleted()
	s.publish(changefeed.OpDeleteUser, user, "", nil)
	return nil
}

// DumpAll returns the whole store.
func (s *EntityService) DumpAll() map[string]store.Entities {
	return s.store.DumpAll()
}

// Stats returns store-wide counts.
func (s *EntityService) Stats() store.Stats {
	return s.store.Stats()
}

// observe records rejected operations and passes err through.
func (s *EntityService) observe(err error) error {
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		s.metrics.IncNotFound()
	case errors.Is(err, store.ErrEntityExists):
		s.metrics.IncConflict()
	}
	return err
}

func (s *EntityService) publish(op changefeed.Op, user, name string, value json.RawMessage) {
	s.publisher.PublishAsync(changefeed.NewEvent(op, user, name, value, s.now()))
}
