package handler

import (
	"log/slog"
	"net/http"

	"vellum/internal/domain/services"
	"vellum/internal/httputil"
)

// RenderHandler serves the evaluated view of a document: conditional
// branches chosen, repeater rows materialized, formula and currency values
// computed against the current answers.
type RenderHandler struct {
	engine services.DocumentEngine
	logger *slog.Logger
}

// NewRenderHandler creates a new render handler
func NewRenderHandler(engine services.DocumentEngine, logger *slog.Logger) *RenderHandler {
	return &RenderHandler{
		engine: engine,
		logger: logger,
	}
}

// Resolve returns the resolved block tree for a document
func (h *RenderHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	if docID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	resolved, err := h.engine.Resolve(r.Context(), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resolved)
}

// Integrity returns the content fingerprint and audit log for a document
func (h *RenderHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	if docID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	report, err := h.engine.Integrity(r.Context(), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report)
}
