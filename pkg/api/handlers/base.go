package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/blackcoderx/postbox/pkg/core"
	"github.com/blackcoderx/postbox/pkg/storage"
)

// BaseHandler provides common functionality for all API handlers
type BaseHandler struct{}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// sendJSON sends a JSON response with the given status code and data
func (h *BaseHandler) sendJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response with the given status code and message
func (h *BaseHandler) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, errorResponse{Error: message})
}

// sendFailure maps err onto a status code and sends it.
func (h *BaseHandler) sendFailure(w http.ResponseWriter, err error) {
	h.sendError(w, statusFor(err), err.Error())
}

// decode reads a JSON request body into v. An empty body leaves v untouched.
func (h *BaseHandler) decode(req *http.Request, v any) error {
	if req.Body == nil || req.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body: %v", storage.ErrValidation, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrParse):
		return http.StatusUnprocessableEntity
	case core.IsExecutionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
