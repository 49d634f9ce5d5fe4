package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"wikigraph-backend/application/services"
	"wikigraph-backend/pkg/observability"
)

// HistoryHandler serves undo/redo and stack introspection
type HistoryHandler struct {
	history *services.HistoryManager
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHistoryHandler creates the handler. Metrics may be nil in tests.
func NewHistoryHandler(history *services.HistoryManager, metrics *observability.Metrics, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, metrics: metrics, logger: logger}
}

type historyStatusResponse struct {
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
}

type historyStepResponse struct {
	Applied   bool     `json:"applied"`
	Selection []string `json:"selection,omitempty"`
	historyStatusResponse
}

func (h *HistoryHandler) status() historyStatusResponse {
	undoDepth, redoDepth := h.history.Depths()
	return historyStatusResponse{
		UndoDepth: undoDepth,
		RedoDepth: redoDepth,
		CanUndo:   undoDepth > 0,
		CanRedo:   redoDepth > 0,
	}
}

// Status handles GET /history
func (h *HistoryHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.status())
}

type historyStepRequest struct {
	Selection []string `json:"selection"`
}

// Undo handles POST /history/undo. An empty stack is a no-op, not an error.
func (h *HistoryHandler) Undo(w http.ResponseWriter, r *http.Request) {
	var req historyStepRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	selection, applied := h.history.Undo(req.Selection)
	if applied && h.metrics != nil {
		h.metrics.HistoryOps.WithLabelValues("undo").Inc()
	}
	respondJSON(w, http.StatusOK, historyStepResponse{
		Applied:               applied,
		Selection:             selection,
		historyStatusResponse: h.status(),
	})
}

// Redo handles POST /history/redo
func (h *HistoryHandler) Redo(w http.ResponseWriter, r *http.Request) {
	var req historyStepRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	selection, applied := h.history.Redo(req.Selection)
	if applied && h.metrics != nil {
		h.metrics.HistoryOps.WithLabelValues("redo").Inc()
	}
	respondJSON(w, http.StatusOK, historyStepResponse{
		Applied:               applied,
		Selection:             selection,
		historyStatusResponse: h.status(),
	})
}
