package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"wikigraph-backend/application/services"
	pkgerrors "wikigraph-backend/pkg/errors"
	"wikigraph-backend/pkg/observability"
)

// TopicHandler serves topic insertion and expansion
type TopicHandler struct {
	explorer *services.TopicExplorer
	history  *services.HistoryManager
	metrics  *observability.Metrics
	validate *validator.Validate
	logger   *zap.Logger
}

// NewTopicHandler creates the handler. Metrics may be nil in tests.
func NewTopicHandler(
	explorer *services.TopicExplorer,
	history *services.HistoryManager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TopicHandler {
	return &TopicHandler{
		explorer: explorer,
		history:  history,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

type addTopicRequest struct {
	Query string `json:"query" validate:"required,min=1,max=300"`
}

type addTopicResponse struct {
	ID string `json:"id"`
}

// AddTopic handles POST /topics: resolve the query, insert the root node
// immediately and queue discovered neighbors through the batcher
func (h *TopicHandler) AddTopic(w http.ResponseWriter, r *http.Request) {
	var req addTopicRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, h.logger, pkgerrors.NewValidationError("query is required"))
		return
	}

	h.history.Push(nil)
	id, err := h.explorer.AddTopic(r.Context(), req.Query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TopicsAdded.Inc()
	}
	respondJSON(w, http.StatusCreated, addTopicResponse{ID: id})
}

type expandTopicResponse struct {
	ID         string `json:"id"`
	Discovered int    `json:"discovered"`
}

// ExpandTopic handles POST /nodes/{nodeID}/expand: fetch forward links and
// backlinks concurrently and queue both directions
func (h *TopicHandler) ExpandTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")

	h.history.Push(nil)
	discovered, err := h.explorer.ExpandTopic(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TopicsExpanded.Inc()
	}
	respondJSON(w, http.StatusOK, expandTopicResponse{ID: id, Discovered: discovered})
}
