package services

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"wikigraph-backend/application/ports"
	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
	pkgerrors "wikigraph-backend/pkg/errors"
)

// SearchState is the pathfinder's lifecycle state
type SearchState string

const (
	SearchStateIdle      SearchState = "idle"
	SearchStateResolving SearchState = "resolving"
	SearchStateRunning   SearchState = "running"
	SearchStatePaused    SearchState = "paused"
)

// SearchOutcome is the terminal result kind of a search run. The three
// failure kinds are deliberately distinguishable to the caller.
type SearchOutcome string

const (
	OutcomeFound         SearchOutcome = "found"
	OutcomeExhausted     SearchOutcome = "not-found"
	OutcomeLimitExceeded SearchOutcome = "exploration-limit-exceeded"
	OutcomeAborted       SearchOutcome = "aborted"
)

// SearchConfig bounds a search run
type SearchConfig struct {
	MaxDepth      int  // nodes at this depth are not expanded further
	MaxVisited    int  // hard exploration cap, a distinct failure from exhaustion
	KeepSearching bool // loop Found back into Running for additional paths
}

// DefaultSearchConfig returns the standard search bounds
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxDepth:   4,
		MaxVisited: 500,
	}
}

// SearchResult is what a completed run reports
type SearchResult struct {
	Outcome  SearchOutcome `json:"outcome"`
	Path     []string      `json:"path,omitempty"`
	Paths    [][]string    `json:"paths,omitempty"`
	Explored int           `json:"explored"`
}

// SearchProgress is the structured progress update
type SearchProgress struct {
	Current  string `json:"current"`
	Depth    int    `json:"depth"`
	Explored int    `json:"explored"`
	Frontier int    `json:"frontier"`
}

// frontierItem is one (title, depth) pair in the BFS queue
type frontierItem struct {
	title string
	depth int
}

// Pathfinder runs breadth-first searches over the content collaborator to
// discover a hyperlink path between two topics, injecting discovered paths
// into the graph. Runs are strictly sequential; pause, resume and abort are
// idempotent, and abort latency is bounded: the run observes the signal
// before its next expansion step.
type Pathfinder struct {
	graph   *aggregates.Graph
	fetcher ports.ContentFetcher
	epoch   *EpochCounter
	config  SearchConfig
	logger  *zap.Logger

	runMu sync.Mutex // one search at a time

	mu     sync.Mutex
	cond   *sync.Cond
	state  SearchState
	paused bool
	cancel context.CancelFunc

	onProgress  func(SearchProgress)
	onPathFound func(path []string)
}

// NewPathfinder creates a search engine over the graph and fetcher
func NewPathfinder(
	graph *aggregates.Graph,
	fetcher ports.ContentFetcher,
	epoch *EpochCounter,
	config SearchConfig,
	logger *zap.Logger,
) *Pathfinder {
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultSearchConfig().MaxDepth
	}
	if config.MaxVisited <= 0 {
		config.MaxVisited = DefaultSearchConfig().MaxVisited
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pathfinder{
		graph:   graph,
		fetcher: fetcher,
		epoch:   epoch,
		config:  config,
		state:   SearchStateIdle,
		logger:  logger,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// OnProgress registers the structured progress callback
func (p *Pathfinder) OnProgress(fn func(SearchProgress)) {
	p.mu.Lock()
	p.onProgress = fn
	p.mu.Unlock()
}

// OnPathFound registers the discovery callback. Discoveries are deduplicated
// by the exact ordered node sequence, so a path is never reported twice.
func (p *Pathfinder) OnPathFound(fn func(path []string)) {
	p.mu.Lock()
	p.onPathFound = fn
	p.mu.Unlock()
}

// State returns the current lifecycle state
func (p *Pathfinder) State() SearchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsSearching reports whether a run is in progress
func (p *Pathfinder) IsSearching() bool {
	state := p.State()
	return state != SearchStateIdle
}

// Pause suspends the traversal at its next step. Pausing while already
// paused, or while idle, has no observable effect.
func (p *Pathfinder) Pause() {
	p.mu.Lock()
	if p.cancel != nil {
		p.paused = true
	}
	p.mu.Unlock()
}

// Resume releases a paused traversal
func (p *Pathfinder) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Abort cancels the running search, if any. Aborting while idle is a no-op.
func (p *Pathfinder) Abort() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.cond.Broadcast()
}

// FindPath resolves the two titles and runs a breadth-first search from
// start toward goal. On success the discovered path's nodes and links are
// injected into the graph (unless a history restore has bumped the epoch in
// the meantime) and the run reports OutcomeFound; otherwise the outcome
// distinguishes exhaustion, the exploration cap, and user abort.
func (p *Pathfinder) FindPath(ctx context.Context, start, goal string) (SearchResult, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if strings.TrimSpace(start) == "" || strings.TrimSpace(goal) == "" {
		return SearchResult{}, pkgerrors.NewValidationError("start and goal are required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.cancel = cancel
	p.paused = false
	p.state = SearchStateResolving
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.paused = false
		p.state = SearchStateIdle
		p.mu.Unlock()
		p.cond.Broadcast()
	}()

	// Wake the pause gate when the context dies
	go func() {
		<-ctx.Done()
		p.cond.Broadcast()
	}()

	tracer := otel.Tracer("wikigraph/pathfinder")
	ctx, span := tracer.Start(ctx, "pathfinder.find_path")
	defer span.End()

	captured := uint64(0)
	if p.epoch != nil {
		captured = p.epoch.Current()
	}

	start, goal = p.resolvePair(ctx, start, goal)
	span.SetAttributes(
		attribute.String("search.start", start),
		attribute.String("search.goal", goal),
	)
	if ctx.Err() != nil {
		return SearchResult{Outcome: OutcomeAborted}, nil
	}

	result := p.search(ctx, start, goal, captured)
	span.SetAttributes(
		attribute.String("search.outcome", string(result.Outcome)),
		attribute.Int("search.explored", result.Explored),
	)
	p.logger.Info("Search finished",
		zap.String("start", start),
		zap.String("goal", goal),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("explored", result.Explored),
	)
	return result, nil
}

// resolvePair resolves both titles concurrently, best-effort: resolution
// failure falls back to the raw input string.
func (p *Pathfinder) resolvePair(ctx context.Context, start, goal string) (string, string) {
	var wg sync.WaitGroup
	resolved := [2]string{start, goal}
	for i, query := range [2]string{start, goal} {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			canonical, err := p.fetcher.ResolveTitle(ctx, query)
			if err != nil || canonical == "" {
				p.logger.Debug("Title resolution failed, using raw input",
					zap.String("query", query),
					zap.Error(err),
				)
				return
			}
			resolved[i] = canonical
		}(i, query)
	}
	wg.Wait()
	return resolved[0], resolved[1]
}

func (p *Pathfinder) search(ctx context.Context, start, goal string, captured uint64) SearchResult {
	p.mu.Lock()
	p.state = SearchStateRunning
	p.mu.Unlock()

	if start == goal {
		p.deliverPath(ctx, []string{start}, captured, map[string]bool{})
		return SearchResult{Outcome: OutcomeFound, Path: []string{start}, Paths: [][]string{{start}}}
	}

	queue := []frontierItem{{title: start, depth: 0}}
	visited := map[string]bool{start: true}
	parent := map[string]string{}
	reported := map[string]bool{}

	var found [][]string
	explored := 0

	for len(queue) > 0 {
		if err := p.gate(ctx); err != nil {
			return SearchResult{Outcome: OutcomeAborted, Explored: explored, Paths: found}
		}

		item := queue[0]
		queue = queue[1:]
		explored++

		if explored%3 == 0 {
			p.logger.Debug("Exploring",
				zap.String("title", item.title),
				zap.Int("depth", item.depth),
				zap.Int("explored", explored),
			)
		}
		if explored%5 == 0 {
			p.reportProgress(SearchProgress{
				Current:  item.title,
				Depth:    item.depth,
				Explored: explored,
				Frontier: len(queue),
			})
			// Cooperative scheduling point so progress keeps the host
			// responsive during long traversals
			runtime.Gosched()
		}

		if len(visited) > p.config.MaxVisited {
			return SearchResult{Outcome: OutcomeLimitExceeded, Explored: explored, Paths: found}
		}
		if item.depth >= p.config.MaxDepth {
			continue
		}

		links, err := p.fetchLinks(ctx, item.title)
		if err != nil {
			if ctx.Err() != nil {
				return SearchResult{Outcome: OutcomeAborted, Explored: explored, Paths: found}
			}
			p.logger.Warn("Link fetch failed mid-search",
				zap.String("title", item.title),
				zap.Error(err),
			)
			continue
		}

		for _, candidate := range links {
			if candidate.Title == goal {
				path := reconstructPath(parent, start, item.title)
				path = append(path, goal)
				p.deliverPath(ctx, path, captured, reported)
				found = append(found, path)
				if !p.config.KeepSearching {
					return SearchResult{Outcome: OutcomeFound, Path: path, Paths: found, Explored: explored}
				}
				continue
			}
			if visited[candidate.Title] {
				continue
			}
			visited[candidate.Title] = true
			parent[candidate.Title] = item.title
			queue = append(queue, frontierItem{title: candidate.Title, depth: item.depth + 1})
		}
	}

	if len(found) > 0 {
		return SearchResult{Outcome: OutcomeFound, Path: found[0], Paths: found, Explored: explored}
	}
	return SearchResult{Outcome: OutcomeExhausted, Explored: explored}
}

// gate blocks while the search is paused and reports context cancellation.
// It suspends on a condition variable rather than polling; Resume and Abort
// both broadcast, so wake-up latency is bounded by the signal, not a timer.
func (p *Pathfinder) gate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.paused && ctx.Err() == nil {
		p.state = SearchStatePaused
		p.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.state = SearchStateRunning
	return nil
}

// fetchLinks prefers the collaborator's cache before going to the network
func (p *Pathfinder) fetchLinks(ctx context.Context, title string) ([]ports.TopicLink, error) {
	if cached, ok := p.fetcher.CachedLinks(title); ok {
		return cached, nil
	}
	return p.fetcher.FetchLinks(ctx, title)
}

// deliverPath injects a discovered path into the graph and reports it once.
// The injection is dropped entirely when the captured epoch is stale, and
// duplicate discoveries of the same ordered sequence are never re-reported.
func (p *Pathfinder) deliverPath(ctx context.Context, path []string, captured uint64, reported map[string]bool) {
	key := strings.Join(path, "\x00")
	if reported[key] {
		return
	}
	reported[key] = true

	if ctx.Err() != nil {
		return
	}
	if p.epoch != nil && !p.epoch.IsCurrent(captured) {
		p.logger.Debug("Discarding stale path injection", zap.Strings("path", path))
		return
	}

	specs := make([]aggregates.NodeSpec, 0, len(path))
	updates := make([]aggregates.MetadataUpdate, 0, len(path))
	links := make([]entities.Link, 0, len(path)-1)
	for i, title := range path {
		specs = append(specs, aggregates.NodeSpec{ID: title})
		patch := &entities.MetadataPatch{IsInPath: entities.Bool(true)}
		if i == 0 || i == len(path)-1 {
			patch.IsPathEndpoint = entities.Bool(true)
		}
		updates = append(updates, aggregates.MetadataUpdate{ID: title, Patch: patch})
		if i > 0 {
			links = append(links, entities.Link{
				Source: path[i-1],
				Target: title,
				Type:   entities.LinkTypePath,
			})
		}
	}
	p.graph.AddNodes(specs)
	p.graph.AddLinks(links)
	p.graph.SetNodesMetadata(updates)
	p.graph.ClearFocusHighlight()

	p.mu.Lock()
	fn := p.onPathFound
	p.mu.Unlock()
	if fn != nil {
		fn(path)
	}
}

func (p *Pathfinder) reportProgress(progress SearchProgress) {
	p.mu.Lock()
	fn := p.onProgress
	p.mu.Unlock()
	if fn != nil {
		fn(progress)
	}
}

// reconstructPath walks the parent map from last back to start
func reconstructPath(parent map[string]string, start, last string) []string {
	reversed := []string{last}
	for current := last; current != start; {
		next, ok := parent[current]
		if !ok {
			break
		}
		reversed = append(reversed, next)
		current = next
	}
	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
