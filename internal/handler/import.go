package handler

import (
	"log/slog"
	"net/http"

	"vellum/internal/domain/services"
	"vellum/internal/httputil"
)

// ImportHandler handles HTML import requests
type ImportHandler struct {
	engine services.DocumentEngine
	logger *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(engine services.DocumentEngine, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		engine: engine,
		logger: logger,
	}
}

// ImportHTML sanitizes and converts HTML, inserting the resulting text
// blocks into the document
func (h *ImportHandler) ImportHTML(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	if docID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	var req services.ImportHTMLRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Actor = httputil.GetUserID(r)

	blocks, err := h.engine.ImportHTML(r.Context(), docID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, blocks)
}
