package handlers

import (
	"net/http"

	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// EnvironmentHandler serves environment listing, reads and saves.
type EnvironmentHandler struct {
	BaseHandler
	environments *storage.EnvironmentStore
}

// NewEnvironmentHandler creates a new environment handler
func NewEnvironmentHandler(environments *storage.EnvironmentStore) *EnvironmentHandler {
	return &EnvironmentHandler{environments: environments}
}

type saveEnvironmentRequest struct {
	Values []storage.Variable `json:"values"`
}

type saveEnvironmentResponse struct {
	OK     bool               `json:"ok"`
	Name   string             `json:"name"`
	Values []storage.Variable `json:"values"`
}

// ListEnvironments handles GET /environments
func (h *EnvironmentHandler) ListEnvironments(w http.ResponseWriter, req *http.Request) {
	names, err := h.environments.List()
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, names)
}

// GetEnvironment handles GET /environment/{name}
func (h *EnvironmentHandler) GetEnvironment(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "name required")
		return
	}

	env, err := h.environments.Load(name)
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, env)
}

// SaveEnvironment handles POST /environment/{name}
func (h *EnvironmentHandler) SaveEnvironment(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "name required")
		return
	}

	var body saveEnvironmentRequest
	if err := h.decode(req, &body); err != nil {
		h.sendFailure(w, err)
		return
	}

	env, err := h.environments.Save(name, body.Values)
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, saveEnvironmentResponse{OK: true, Name: env.Name, Values: env.Values})
}
