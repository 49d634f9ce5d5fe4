package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"wikigraph-backend/application/services"
	pkgerrors "wikigraph-backend/pkg/errors"
	"wikigraph-backend/pkg/observability"
)

// SearchHandler drives the pathfinder: start runs asynchronously, pause,
// resume and abort act on the in-flight run, and status reports the state
// plus the last completed result.
type SearchHandler struct {
	pathfinder *services.Pathfinder
	metrics    *observability.Metrics
	validate   *validator.Validate
	logger     *zap.Logger

	mu         sync.Mutex
	lastResult *services.SearchResult
}

// NewSearchHandler creates the handler. Metrics may be nil in tests.
func NewSearchHandler(pathfinder *services.Pathfinder, metrics *observability.Metrics, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		pathfinder: pathfinder,
		metrics:    metrics,
		validate:   validator.New(),
		logger:     logger,
	}
}

type startSearchRequest struct {
	Start string `json:"start" validate:"required,min=1,max=300"`
	Goal  string `json:"goal" validate:"required,min=1,max=300"`
}

type searchStatusResponse struct {
	State  services.SearchState   `json:"state"`
	Result *services.SearchResult `json:"result,omitempty"`
}

// Start handles POST /search. The run executes on its own goroutine; a
// second start while one is in flight is rejected with a conflict.
func (h *SearchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, h.logger, pkgerrors.NewValidationError("start and goal are required"))
		return
	}
	if h.pathfinder.IsSearching() {
		respondError(w, h.logger, pkgerrors.NewConflictError("a search is already running"))
		return
	}

	go func() {
		// Detached from the request: the search outlives the HTTP exchange
		result, err := h.pathfinder.FindPath(context.Background(), req.Start, req.Goal)
		if err != nil {
			h.logger.Warn("Search failed to start", zap.Error(err))
			return
		}
		h.mu.Lock()
		h.lastResult = &result
		h.mu.Unlock()
		if h.metrics != nil {
			h.metrics.SearchOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		}
	}()

	respondJSON(w, http.StatusAccepted, searchStatusResponse{State: services.SearchStateResolving})
}

// Status handles GET /search
func (h *SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	result := h.lastResult
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, searchStatusResponse{
		State:  h.pathfinder.State(),
		Result: result,
	})
}

// Pause handles POST /search/pause
func (h *SearchHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.pathfinder.Pause()
	respondJSON(w, http.StatusOK, searchStatusResponse{State: h.pathfinder.State()})
}

// Resume handles POST /search/resume
func (h *SearchHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.pathfinder.Resume()
	respondJSON(w, http.StatusOK, searchStatusResponse{State: h.pathfinder.State()})
}

// Abort handles POST /search/abort
func (h *SearchHandler) Abort(w http.ResponseWriter, r *http.Request) {
	h.pathfinder.Abort()
	respondJSON(w, http.StatusOK, searchStatusResponse{State: h.pathfinder.State()})
}
