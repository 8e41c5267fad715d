package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swyw/swyw/internal/handler/dto"
	"github.com/swyw/swyw/internal/service"
	"github.com/swyw/swyw/internal/store"
)

// EntityService is the business layer used by EntityHandler.
type EntityService interface {
	ListEntities(user string) (store.Entities, error)
	GetEntity(user, name string) (json.RawMessage, error)
	CreateEntity(user, name string, value json.RawMessage) error
	UpdateEntity(user, name string, value json.RawMessage) error
	DeleteEntity(user, name string) error
	ClearEntities(user string) error
	DeleteUser(user string) error
	DumpAll() map[string]store.Entities
}

// EntityHandler handles HTTP requests for user entities.
type EntityHandler struct {
	svc         EntityService
	logger      *slog.Logger
	dumpEnabled bool
}

// NewEntityHandler creates a new EntityHandler. When dumpEnabled is false
// the GET /all debug route is not registered.
func NewEntityHandler(svc EntityService, logger *slog.Logger, dumpEnabled bool) *EntityHandler {
	return &EntityHandler{
		svc:         svc,
		logger:      logger,
		dumpEnabled: dumpEnabled,
	}
}

// Routes registers the entity endpoints on r.
// Static segments take precedence in chi, so GET /all and
// GET /{user}/clear win over the parameterised routes.
func (h *EntityHandler) Routes(r chi.Router) {
	if h.dumpEnabled {
		r.Get("/all", h.DumpAll)
	}

	r.Get("/{user}", h.List)
	r.Delete("/{user}", h.DeleteUser)
	r.Get("/{user}/clear", h.Clear)

	r.Get("/{user}/{entityName}", h.Get)
	r.Post("/{user}/{entityName}", h.Create)
	r.Put("/{user}/{entityName}", h.Update)
	r.Delete("/{user}/{entityName}", h.Delete)
}

// List handles GET /{user}.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	entities, err := h.svc.ListEntities(user)
	if err != nil {
		h.handleServiceError(w, err, user, "")
		return
	}

	writeJSON(w, http.StatusOK, entities)
}

// Get handles GET /{user}/{entityName}. The stored document is written
// back byte for byte.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, name := chi.URLParam(r, "user"), chi.URLParam(r, "entityName")

	value, err := h.svc.GetEntity(user, name)
	if err != nil {
		h.handleServiceError(w, err, user, name)
		return
	}

	writeRawJSON(w, http.StatusOK, value)
}

// Clear handles GET /{user}/clear.
func (h *EntityHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	if err := h.svc.ClearEntities(user); err != nil {
		h.handleServiceError(w, err, user, "")
		return
	}

	h.logger.Info("entities_cleared", "user", user)
	w.WriteHeader(http.StatusNoContent)
}

// Create handles POST /{user}/{entityName}.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, name := chi.URLParam(r, "user"), chi.URLParam(r, "entityName")

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if err := h.svc.CreateEntity(user, name, body); err != nil {
		h.handleServiceError(w, err, user, name)
		return
	}

	h.logger.Info("entity_created", "user", user, "entity", name, "size", len(body))
	w.WriteHeader(http.StatusNoContent)
}

// Update handles PUT /{user}/{entityName}.
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, name := chi.URLParam(r, "user"), chi.URLParam(r, "entityName")

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if err := h.svc.UpdateEntity(user, name, body); err != nil {
		h.handleServiceError(w, err, user, name)
		return
	}

	h.logger.Info("entity_updated", "user", user, "entity", name, "size", len(body))
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /{user}/{entityName}.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, name := chi.URLParam(r, "user"), chi.URLParam(r, "entityName")

	if err := h.svc.DeleteEntity(user, name); err != nil {
		h.handleServiceError(w, err, user, name)
		return
	}

	h.logger.Info("entity_deleted", "user", user, "entity", name)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /{user}.
func (h *EntityHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	if err := h.svc.DeleteUser(user); err != nil {
		h.handleServiceError(w, err, user, "")
		return
	}

	h.logger.Info("user_deleted", "user", user)
	w.WriteHeader(http.StatusNoContent)
}

// DumpAll handles GET /all. Debug only: it exposes every user's data.
func (h *EntityHandler) DumpAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.DumpAll())
}

// readBody reads the whole request body. On failure it writes the error
// response and returns false.
func (h *EntityHandler) readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, dto.CodePayloadTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, dto.CodeInvalidJSON, "failed to read request body")
		return nil, false
	}
	return body, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *EntityHandler) handleServiceError(w http.ResponseWriter, err error, user, name string) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, dto.CodeUserNotFound, fmt.Sprintf("user %q not found", user))
	case errors.Is(err, store.ErrEntityNotFound):
		writeError(w, http.StatusNotFound, dto.CodeEntityNotFound, fmt.Sprintf("entity %q not found", name))
	case errors.Is(err, store.ErrEntityExists):
		writeError(w, http.StatusConflict, dto.CodeEntityExists, fmt.Sprintf("entity %q already exists", name))
	case errors.Is(err, service.ErrInvalidJSON):
		writeError(w, http.StatusBadRequest, dto.CodeInvalidJSON, "request body must be a valid JSON document")
	default:
		h.logger.Error("internal_error", "error", err, "user", user, "entity", name)
		writeError(w, http.StatusInternalServerError, dto.CodeInternal, "an internal error occurred")
	}
}
