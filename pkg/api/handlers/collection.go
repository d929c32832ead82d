package handlers

import (
	"fmt"
	"net/http"

	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// CollectionHandler serves collection listing, reads and saves.
type CollectionHandler struct {
	BaseHandler
	collections *storage.CollectionStore
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collections *storage.CollectionStore) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// saveRequest is the body of POST /save.
type saveRequest struct {
	CollectionName string              `json:"collectionName"`
	EndpointName   string              `json:"endpointName"`
	Request        storage.RequestSpec `json:"request"`
}

type saveResponse struct {
	OK         bool   `json:"ok"`
	Collection string `json:"collection"`
	SavedName  string `json:"savedName"`
	Created    bool   `json:"created"`
}

// ListCollections handles GET /apis and GET /api
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, req *http.Request) {
	names, err := h.collections.List()
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, names)
}

// GetCollection handles GET /collection/{apiName} and GET /collection?apiName=
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, req *http.Request) {
	name := collectionParam(req)
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "apiName required")
		return
	}

	coll, err := h.collections.Load(name)
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, coll)
}

// ListEndpoints handles GET /collection/{apiName}/endpoints
func (h *CollectionHandler) ListEndpoints(w http.ResponseWriter, req *http.Request) {
	name := collectionParam(req)
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "apiName required")
		return
	}

	refs, err := h.collections.Endpoints(name)
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, refs)
}

// Save handles POST /save
func (h *CollectionHandler) Save(w http.ResponseWriter, req *http.Request) {
	var body saveRequest
	if err := h.decode(req, &body); err != nil {
		h.sendFailure(w, err)
		return
	}
	if body.CollectionName == "" {
		h.sendError(w, http.StatusBadRequest, "collectionName required")
		return
	}

	result, err := h.collections.Save(body.CollectionName, body.EndpointName, body.Request)
	if err != nil {
		h.sendFailure(w, fmt.Errorf("save %q: %w", body.CollectionName, err))
		return
	}
	h.sendJSON(w, http.StatusOK, saveResponse{
		OK:         true,
		Collection: result.Collection,
		SavedName:  result.SavedName,
		Created:    result.Created,
	})
}

func collectionParam(req *http.Request) string {
	if name := chi.URLParam(req, "apiName"); name != "" {
		return name
	}
	return req.URL.Query().Get("apiName")
}
