// Package rest wires the HTTP surface: the chi router, its middleware
// stack, and the API routes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"wikigraph-backend/interfaces/http/rest/handlers"
	"wikigraph-backend/interfaces/http/rest/middleware"
	"wikigraph-backend/pkg/observability"
)

// Dependencies carries everything the router mounts
type Dependencies struct {
	Graph     *handlers.GraphHandler
	Topics    *handlers.TopicHandler
	Search    *handlers.SearchHandler
	History   *handlers.HistoryHandler
	WebSocket http.Handler
	Metrics   *observability.Metrics
	Logger    *zap.Logger

	AllowedOrigins []string
}

// Setup builds the router with the full middleware stack and API routes
func Setup(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	if deps.WebSocket != nil {
		r.Handle("/ws", deps.WebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/graph", deps.Graph.GetSnapshot)
		r.Delete("/graph", deps.Graph.ClearGraph)
		r.Get("/graph/stats", deps.Graph.GetStats)
		r.Post("/graph/snapshot", deps.Graph.RestoreSnapshot)

		r.Post("/topics", deps.Topics.AddTopic)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/prune", deps.Graph.PruneNodes)
			r.Route("/{nodeID}", func(r chi.Router) {
				r.Delete("/", deps.Graph.DeleteNode)
				r.Post("/expand", deps.Topics.ExpandTopic)
				r.Patch("/metadata", deps.Graph.PatchMetadata)
			})
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/", deps.Search.Status)
			r.Post("/", deps.Search.Start)
			r.Post("/pause", deps.Search.Pause)
			r.Post("/resume", deps.Search.Resume)
			r.Post("/abort", deps.Search.Abort)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", deps.History.Status)
			r.Post("/undo", deps.History.Undo)
			r.Post("/redo", deps.History.Redo)
		})
	})

	return r
}
