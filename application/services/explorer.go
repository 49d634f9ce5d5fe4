package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"wikigraph-backend/application/ports"
	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
	pkgerrors "wikigraph-backend/pkg/errors"
)

// UpdateQueuer accepts node and link batches for deferred application
type UpdateQueuer interface {
	QueueUpdate(nodes []aggregates.NodeSpec, links []entities.Link)
}

// ExplorerConfig bounds how much a single add or expand pulls in
type ExplorerConfig struct {
	MaxChildren int // per-direction cap on discovered neighbors
}

// DefaultExplorerConfig returns the standard exploration bounds
func DefaultExplorerConfig() ExplorerConfig {
	return ExplorerConfig{MaxChildren: 12}
}

// TopicExplorer grows the graph from the content collaborator: adding a root
// topic discovers its outgoing links, expanding an existing node discovers
// both directions. Discoveries are queued through the batcher rather than
// applied directly, and every fetch captures the mutation epoch up front so
// a history restore occurring mid-fetch discards the result wholesale.
type TopicExplorer struct {
	graph   *aggregates.Graph
	fetcher ports.ContentFetcher
	epoch   *EpochCounter
	queue   UpdateQueuer
	config  ExplorerConfig
	logger  *zap.Logger
}

// NewTopicExplorer creates an explorer over the graph and its collaborators
func NewTopicExplorer(
	graph *aggregates.Graph,
	fetcher ports.ContentFetcher,
	epoch *EpochCounter,
	queue UpdateQueuer,
	config ExplorerConfig,
	logger *zap.Logger,
) *TopicExplorer {
	if config.MaxChildren <= 0 {
		config.MaxChildren = DefaultExplorerConfig().MaxChildren
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicExplorer{
		graph:   graph,
		fetcher: fetcher,
		epoch:   epoch,
		queue:   queue,
		config:  config,
		logger:  logger,
	}
}

// AddTopic resolves a free-form query, inserts the canonical article as a
// user-typed root node, and queues its outgoing links as auto-discovered
// children. The root is inserted immediately; the children arrive through
// the batcher and are dropped if the epoch moves while the fetch is in
// flight. Returns the canonical title.
func (e *TopicExplorer) AddTopic(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", pkgerrors.NewValidationError("topic query is required")
	}

	// Captured before any I/O: a restore landing mid-resolve must discard
	// the whole add, root insert included
	captured := e.epoch.Current()

	title, err := e.fetcher.ResolveTitle(ctx, query)
	if err != nil || title == "" {
		e.logger.Debug("Title resolution failed, using raw query",
			zap.String("query", query),
			zap.Error(err),
		)
		title = query
	}

	if !e.epoch.IsCurrent(captured) {
		e.logger.Debug("Discarding stale topic add", zap.String("title", title))
		return title, nil
	}

	e.graph.AddNodes([]aggregates.NodeSpec{{
		ID: title,
		Meta: &entities.MetadataPatch{
			IsUserTyped:          entities.Bool(true),
			IsCurrentlyExploring: entities.Bool(true),
			OriginSeed:           entities.String(title),
			OriginDepth:          entities.Int(0),
			ColorSeed:            entities.String(title),
			ColorRole:            entities.Role(entities.ColorRoleRoot),
		},
	}})

	links, err := e.fetchLinks(ctx, title)
	if err != nil {
		e.clearExploring(title, captured)
		return title, pkgerrors.Wrap(err, "fetching links for "+title)
	}

	if !e.epoch.IsCurrent(captured) {
		e.logger.Debug("Discarding stale topic add", zap.String("title", title))
		return title, nil
	}

	nodes, edges := e.childBatch(title, links, entities.LinkTypeAuto, 1, false)
	if len(nodes) > 0 {
		e.queue.QueueUpdate(nodes, edges)
	}
	e.clearExploring(title, captured)
	e.decorate(ctx, title, captured)

	e.logger.Info("Topic added",
		zap.String("title", title),
		zap.Int("children", len(nodes)),
	)
	return title, nil
}

// ExpandTopic discovers both directions around an existing node: outgoing
// links become expand-typed children and backlinks become
// expand-backlink-typed parents. The node is marked expanded when the queued
// work survives the epoch check. Returns the number of neighbors queued.
func (e *TopicExplorer) ExpandTopic(ctx context.Context, id string) (int, error) {
	if !e.graph.HasNode(id) {
		return 0, pkgerrors.NewNotFoundError("node not found: " + id)
	}

	e.graph.SetNodeMetadata(id, &entities.MetadataPatch{
		IsCurrentlyExploring: entities.Bool(true),
	})
	captured := e.epoch.Current()

	var (
		wg           sync.WaitGroup
		outgoing     []ports.TopicLink
		incoming     []ports.TopicLink
		outErr, inEr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outgoing, outErr = e.fetchLinks(ctx, id)
	}()
	go func() {
		defer wg.Done()
		incoming, inEr = e.fetcher.FetchBacklinks(ctx, id)
	}()
	wg.Wait()

	if outErr != nil && inEr != nil {
		e.clearExploring(id, captured)
		return 0, pkgerrors.Wrap(outErr, "expanding "+id)
	}
	if !e.epoch.IsCurrent(captured) {
		e.logger.Debug("Discarding stale expansion", zap.String("id", id))
		return 0, nil
	}

	depth := e.originDepth(id) + 1
	nodes, edges := e.childBatch(id, outgoing, entities.LinkTypeExpand, depth, false)
	backNodes, backEdges := e.childBatch(id, incoming, entities.LinkTypeExpandBacklink, depth, true)
	nodes = append(nodes, backNodes...)
	edges = append(edges, backEdges...)

	if len(nodes) > 0 {
		e.queue.QueueUpdate(nodes, edges)
	}
	e.graph.SetNodeMetadata(id, &entities.MetadataPatch{
		IsExpanded:           entities.Bool(true),
		IsCurrentlyExploring: entities.Bool(false),
	})

	e.logger.Info("Topic expanded",
		zap.String("id", id),
		zap.Int("outgoing", len(outgoing)),
		zap.Int("incoming", len(incoming)),
		zap.Int("queued", len(nodes)),
	)
	return len(nodes), nil
}

// childBatch builds node specs and links for a capped slice of discovered
// neighbors. Backlinks point at the origin; forward links point away from it.
func (e *TopicExplorer) childBatch(
	origin string,
	discovered []ports.TopicLink,
	linkType entities.LinkType,
	depth int,
	reversed bool,
) ([]aggregates.NodeSpec, []entities.Link) {
	if len(discovered) > e.config.MaxChildren {
		discovered = discovered[:e.config.MaxChildren]
	}

	seed, role := origin, entities.ColorRoleChild
	if meta, ok := e.graph.NodeMetadata(origin); ok && meta.OriginSeed != "" {
		seed = meta.OriginSeed
	}

	nodes := make([]aggregates.NodeSpec, 0, len(discovered))
	links := make([]entities.Link, 0, len(discovered))
	for _, child := range discovered {
		if child.Title == "" || child.Title == origin {
			continue
		}
		nodes = append(nodes, aggregates.NodeSpec{
			ID: child.Title,
			Meta: &entities.MetadataPatch{
				IsAutoDiscovered: entities.Bool(true),
				IsRecentlyAdded:  entities.Bool(true),
				OriginSeed:       entities.String(seed),
				OriginDepth:      entities.Int(depth),
				ColorSeed:        entities.String(seed),
				ColorRole:        entities.Role(role),
			},
		})
		source, target := origin, child.Title
		if reversed {
			source, target = child.Title, origin
		}
		links = append(links, entities.Link{
			Source:  source,
			Target:  target,
			Type:    linkType,
			Context: child.Context,
		})
	}
	return nodes, links
}

// decorate attaches the article thumbnail, best effort and epoch-guarded
func (e *TopicExplorer) decorate(ctx context.Context, title string, captured uint64) {
	summary, err := e.fetcher.FetchSummary(ctx, title)
	if err != nil || summary.Thumbnail == "" {
		return
	}
	if !e.epoch.IsCurrent(captured) {
		return
	}
	e.graph.SetNodeMetadata(title, &entities.MetadataPatch{
		Thumbnail: entities.String(summary.Thumbnail),
	})
}

// clearExploring drops the exploring flag unless the node vanished with a
// restore in the meantime
func (e *TopicExplorer) clearExploring(id string, captured uint64) {
	if !e.epoch.IsCurrent(captured) || !e.graph.HasNode(id) {
		return
	}
	e.graph.SetNodeMetadata(id, &entities.MetadataPatch{
		IsCurrentlyExploring: entities.Bool(false),
	})
}

func (e *TopicExplorer) fetchLinks(ctx context.Context, title string) ([]ports.TopicLink, error) {
	if cached, ok := e.fetcher.CachedLinks(title); ok {
		return cached, nil
	}
	return e.fetcher.FetchLinks(ctx, title)
}

func (e *TopicExplorer) originDepth(id string) int {
	if meta, ok := e.graph.NodeMetadata(id); ok {
		return meta.OriginDepth
	}
	return 0
}
