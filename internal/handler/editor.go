package handler

import (
	"log/slog"
	"net/http"

	"vellum/internal/domain/models/doc"
	"vellum/internal/domain/services"
	"vellum/internal/httputil"
)

// EditorHandler handles HTTP requests for structural edits: blocks,
// undo/redo, parties and form values.
type EditorHandler struct {
	engine services.DocumentEngine
	logger *slog.Logger
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(engine services.DocumentEngine, logger *slog.Logger) *EditorHandler {
	return &EditorHandler{
		engine: engine,
		logger: logger,
	}
}

// AddBlock inserts a new block relative to a target
func (h *EditorHandler) AddBlock(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var req services.AddBlockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Actor = httputil.GetUserID(r)

	block, err := h.engine.AddBlock(r.Context(), docID, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	if block == nil {
		// Missing target: the edit was a structural no-op.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, block)
}

// updateBlockBody wraps the patch so callers can opt keystroke-level edits
// out of the undo history.
type updateBlockBody struct {
	Patch         doc.BlockPatch `json:"patch"`
	RecordHistory *bool          `json:"recordHistory,omitempty"`
}

// UpdateBlock merges a partial update into one block
func (h *EditorHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	blockID := r.PathValue("blockId")

	var body updateBlockBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	recordHistory := body.RecordHistory == nil || *body.RecordHistory

	if err := h.engine.UpdateBlock(r.Context(), docID, blockID, body.Patch, recordHistory, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteBlock removes a block and its subtree
func (h *EditorHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	blockID := r.PathValue("blockId")

	if err := h.engine.DeleteBlock(r.Context(), docID, blockID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveBlock relocates a block relative to a target
func (h *EditorHandler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var req services.MoveBlockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Actor = httputil.GetUserID(r)

	if err := h.engine.MoveBlock(r.Context(), docID, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UngroupBlock replaces a container with its contents
func (h *EditorHandler) UngroupBlock(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	blockID := r.PathValue("blockId")

	if err := h.engine.UngroupBlock(r.Context(), docID, blockID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Undo reverts the most recent structural edit
func (h *EditorHandler) Undo(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	applied, err := h.engine.Undo(r.Context(), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// Redo re-applies the most recently undone edit
func (h *EditorHandler) Redo(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	applied, err := h.engine.Redo(r.Context(), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// AddParty appends a signer/recipient
func (h *EditorHandler) AddParty(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var req services.AddPartyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Actor = httputil.GetUserID(r)

	party, err := h.engine.AddParty(r.Context(), docID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, party)
}

// UpdateParty patches one party
func (h *EditorHandler) UpdateParty(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	partyID := r.PathValue("partyId")

	var req services.UpdatePartyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Actor = httputil.GetUserID(r)

	if err := h.engine.UpdateParty(r.Context(), docID, partyID, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveParty deletes one party
func (h *EditorHandler) RemoveParty(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	partyID := r.PathValue("partyId")

	if err := h.engine.RemoveParty(r.Context(), docID, partyID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplaceParties overwrites the whole party list (reordering)
func (h *EditorHandler) ReplaceParties(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var parties []doc.Party
	if err := httputil.ParseJSON(w, r, &parties); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.UpdateParties(r.Context(), docID, parties, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetValue records one form answer
func (h *EditorHandler) SetValue(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var req services.SetValueRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.SetValue(r.Context(), docID, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
