package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wikigraph-backend/application/services"
	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
	pkgerrors "wikigraph-backend/pkg/errors"
)

// GraphHandler serves graph state: snapshot export/restore, node removal,
// pruning and metadata patches
type GraphHandler struct {
	graph   *aggregates.Graph
	history *services.HistoryManager
	logger  *zap.Logger
}

// NewGraphHandler creates the handler
func NewGraphHandler(graph *aggregates.Graph, history *services.HistoryManager, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graph: graph, history: history, logger: logger}
}

// GetSnapshot handles GET /graph
func (h *GraphHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.graph.Snapshot())
}

// GetStats handles GET /graph/stats
func (h *GraphHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.graph.Stats())
}

// RestoreSnapshot handles POST /graph/snapshot
func (h *GraphHandler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	var snapshot aggregates.Snapshot
	if err := decodeJSON(r, &snapshot); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.history.Push(nil)
	h.graph.RestoreSnapshot(snapshot)
	respondJSON(w, http.StatusOK, h.graph.Stats())
}

// DeleteNode handles DELETE /nodes/{nodeID}
func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	if !h.graph.HasNode(id) {
		respondError(w, h.logger, pkgerrors.NewNotFoundError("node not found: "+id))
		return
	}

	h.history.Push(nil)
	h.graph.DeleteNode(id)
	respondJSON(w, http.StatusOK, h.graph.Stats())
}

// PruneNodes handles POST /nodes/prune
func (h *GraphHandler) PruneNodes(w http.ResponseWriter, r *http.Request) {
	h.history.Push(nil)
	removed := h.graph.PruneNodes()
	respondJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"stats":   h.graph.Stats(),
	})
}

// PatchMetadata handles PATCH /nodes/{nodeID}/metadata
func (h *GraphHandler) PatchMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	if !h.graph.HasNode(id) {
		respondError(w, h.logger, pkgerrors.NewNotFoundError("node not found: "+id))
		return
	}

	var patch entities.MetadataPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.graph.SetNodeMetadata(id, &patch)
	meta, _ := h.graph.NodeMetadata(id)
	respondJSON(w, http.StatusOK, meta)
}

// ClearGraph handles DELETE /graph
func (h *GraphHandler) ClearGraph(w http.ResponseWriter, r *http.Request) {
	h.history.Push(nil)
	h.graph.Clear()
	respondJSON(w, http.StatusOK, h.graph.Stats())
}
