package handlers

import (
	"net/http"

	"github.com/blackcoderx/postbox/pkg/core"
)

// RunHandler resolves and executes requests.
type RunHandler struct {
	BaseHandler
	runner *core.Runner
}

// NewRunHandler creates a new run handler
func NewRunHandler(runner *core.Runner) *RunHandler {
	return &RunHandler{runner: runner}
}

// Run handles POST /run
func (h *RunHandler) Run(w http.ResponseWriter, req *http.Request) {
	var body core.RunRequest
	if err := h.decode(req, &body); err != nil {
		h.sendFailure(w, err)
		return
	}

	result, err := h.runner.Run(req.Context(), body)
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, result)
}
