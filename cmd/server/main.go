// Command server runs the topic graph engine: the graph aggregate, the
// force layout loop, the update batcher, the Wikipedia content adapter,
// and the HTTP/WebSocket surface.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wikigraph-backend/application/loaders"
	"wikigraph-backend/application/services"
	"wikigraph-backend/domain/core/aggregates"
	domainservices "wikigraph-backend/domain/services"
	"wikigraph-backend/infrastructure/acl"
	"wikigraph-backend/infrastructure/config"
	"wikigraph-backend/interfaces/http/rest"
	"wikigraph-backend/interfaces/http/rest/handlers"
	"wikigraph-backend/interfaces/render"
	"wikigraph-backend/interfaces/websocket"
	"wikigraph-backend/pkg/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

func run(configPath string, logger *zap.Logger) error {
	cfg, watcher, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tracer, err := observability.InitTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer tracer.Shutdown(context.Background())
	}

	metrics := observability.NewMetrics()

	// Domain core
	graph := aggregates.NewGraph(logger)
	layout := domainservices.NewForceLayout(graph, layoutConfig(cfg), logger)
	graph.OnReheat(layout.Reheat)
	layout.Resize(cfg.Layout.ViewportWidth, cfg.Layout.ViewportHeight)

	// Application services
	epoch := services.NewEpochCounter()
	batcher := loaders.NewGraphUpdateBatcher(graph, cfg.BatchWindow(), logger)
	batcher.OnFlush(func(nodes, links int) {
		metrics.BatchFlushes.Inc()
	})

	adapter := acl.NewWikipediaAdapter(wikipediaConfig(cfg), logger)
	explorer := services.NewTopicExplorer(graph, adapter, epoch, batcher, services.ExplorerConfig{
		MaxChildren: cfg.Explorer.MaxChildren,
	}, logger)
	pathfinder := services.NewPathfinder(graph, adapter, epoch, services.SearchConfig{
		MaxDepth:      cfg.Search.MaxDepth,
		MaxVisited:    cfg.Search.MaxVisited,
		KeepSearching: cfg.Search.KeepSearching,
	}, logger)
	history := services.NewHistoryManager(graph, epoch, batcher, pathfinder, logger)
	history.SetLimit(cfg.History.Limit)

	if watcher != nil {
		watcher.OnChange(func(next config.Config) {
			history.SetLimit(next.History.Limit)
			layout.Resize(next.Layout.ViewportWidth, next.Layout.ViewportHeight)
		})
		watcher.Start()
		defer watcher.Stop()
	}

	// Viewer fan-out
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Stop()
	surface := websocket.NewWebSurface(hub, logger)
	reconciler := render.NewReconciler(graph, surface, logger)

	graph.OnReconcile(reconciler.Reconcile)
	graph.OnStats(func(stats aggregates.Stats) {
		metrics.Nodes.Set(float64(stats.NodeCount))
		metrics.Links.Set(float64(stats.LinkCount))
		surface.PushStats(stats)
	})
	layout.OnTick(reconciler.Tick)
	pathfinder.OnProgress(surface.PushSearchProgress)
	pathfinder.OnPathFound(surface.PushPathFound)

	go layout.Run(ctx)

	router := rest.Setup(rest.Dependencies{
		Graph:          handlers.NewGraphHandler(graph, history, logger),
		Topics:         handlers.NewTopicHandler(explorer, history, metrics, logger),
		Search:         handlers.NewSearchHandler(pathfinder, metrics, logger),
		History:        handlers.NewHistoryHandler(history, metrics, logger),
		WebSocket:      websocket.NewHandler(hub, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, logger),
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	pathfinder.Abort()
	batcher.ForceFlush()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadConfig prefers the hot-reloading watcher; when the file does not
// exist yet there is nothing to watch and a plain load serves the defaults
func loadConfig(path string, logger *zap.Logger) (config.Config, *config.Watcher, error) {
	watcher, err := config.NewWatcher(path, logger)
	if err == nil {
		return watcher.Current(), watcher, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, nil, nil
}

func layoutConfig(cfg config.Config) domainservices.LayoutConfig {
	layout := domainservices.DefaultLayoutConfig()
	layout.LinkDistance = cfg.Layout.LinkDistance
	layout.ChargeStrength = cfg.Layout.ChargeStrength
	layout.SizeScale = cfg.Layout.SizeScale
	layout.FrameInterval = cfg.FrameInterval()
	return layout
}

func wikipediaConfig(cfg config.Config) acl.WikipediaConfig {
	wiki := acl.DefaultWikipediaConfig()
	wiki.APIEndpoint = cfg.Wikipedia.APIEndpoint
	wiki.RESTBase = cfg.Wikipedia.RESTBase
	wiki.UserAgent = cfg.Wikipedia.UserAgent
	wiki.Timeout = time.Duration(cfg.Wikipedia.TimeoutSec) * time.Second
	wiki.CacheTTL = time.Duration(cfg.Wikipedia.CacheTTLMinutes) * time.Minute
	wiki.MaxLinks = cfg.Wikipedia.MaxLinks
	return wiki
}
