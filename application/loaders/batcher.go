package loaders

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
)

// DefaultFlushWindow is how long queued updates wait before being applied
const DefaultFlushWindow = 500 * time.Millisecond

// GraphUpdateBatcher coalesces bursts of node/link additions from multiple
// concurrent fetches into single graph-mutating flushes, so a flood of small
// updates does not each individually reheat the physics simulation.
type GraphUpdateBatcher struct {
	graph  *aggregates.Graph
	window time.Duration

	mu    sync.Mutex
	nodes []aggregates.NodeSpec
	links []entities.Link
	timer *time.Timer

	// Metrics
	totalFlushes int64
	totalQueued  int64
	metricsMu    sync.RWMutex

	onFlush func(nodes, links int)
	logger  *zap.Logger
}

// BatcherMetrics holds counters for observability
type BatcherMetrics struct {
	TotalFlushes int64
	TotalQueued  int64
}

// NewGraphUpdateBatcher creates a batcher over the graph
func NewGraphUpdateBatcher(graph *aggregates.Graph, window time.Duration, logger *zap.Logger) *GraphUpdateBatcher {
	if window <= 0 {
		window = DefaultFlushWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphUpdateBatcher{
		graph:  graph,
		window: window,
		logger: logger,
	}
}

// OnFlush registers a callback invoked after each applied flush
func (b *GraphUpdateBatcher) OnFlush(fn func(nodes, links int)) {
	b.mu.Lock()
	b.onFlush = fn
	b.mu.Unlock()
}

// QueueUpdate appends nodes and links to the internal buffers and schedules
// a flush if none is pending. A second call inside the window does not
// reschedule the timer, it only grows the buffer — at most one pending flush
// timer exists at a time.
func (b *GraphUpdateBatcher) QueueUpdate(nodes []aggregates.NodeSpec, links []entities.Link) {
	b.mu.Lock()
	b.nodes = append(b.nodes, nodes...)
	b.links = append(b.links, links...)

	b.metricsMu.Lock()
	b.totalQueued += int64(len(nodes) + len(links))
	b.metricsMu.Unlock()

	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.Flush)
	}
	b.mu.Unlock()
}

// Flush applies the buffered nodes then links to the graph in one shot and
// clears both buffers and the timer handle
func (b *GraphUpdateBatcher) Flush() {
	b.mu.Lock()
	nodes := b.nodes
	links := b.links
	b.nodes = nil
	b.links = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	onFlush := b.onFlush
	b.mu.Unlock()

	if len(nodes) == 0 && len(links) == 0 {
		return
	}

	_, span := otel.Tracer("wikigraph/batcher").Start(context.Background(), "batcher.flush")
	span.SetAttributes(
		attribute.Int("flush.nodes", len(nodes)),
		attribute.Int("flush.links", len(links)),
	)
	b.graph.AddNodes(nodes)
	b.graph.AddLinks(links)
	span.End()

	b.metricsMu.Lock()
	b.totalFlushes++
	b.metricsMu.Unlock()

	b.logger.Debug("Flushed graph update batch",
		zap.Int("nodes", len(nodes)),
		zap.Int("links", len(links)),
	)
	if onFlush != nil {
		onFlush(len(nodes), len(links))
	}
}

// ForceFlush applies any buffered work immediately
func (b *GraphUpdateBatcher) ForceFlush() {
	b.Flush()
}

// Clear discards buffered work and cancels the pending timer without
// applying anything. Used when in-flight mutations must be invalidated, e.g.
// after a history restore.
func (b *GraphUpdateBatcher) Clear() {
	b.mu.Lock()
	dropped := len(b.nodes) + len(b.links)
	b.nodes = nil
	b.links = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if dropped > 0 {
		b.logger.Debug("Discarded buffered graph updates", zap.Int("dropped", dropped))
	}
}

// Pending reports how many nodes and links are waiting for the next flush
func (b *GraphUpdateBatcher) Pending() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes), len(b.links)
}

// GetMetrics returns batching counters
func (b *GraphUpdateBatcher) GetMetrics() BatcherMetrics {
	b.metricsMu.RLock()
	defer b.metricsMu.RUnlock()
	return BatcherMetrics{
		TotalFlushes: b.totalFlushes,
		TotalQueued:  b.totalQueued,
	}
}
