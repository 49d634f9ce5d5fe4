package aggregates

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"wikigraph-backend/domain/core/entities"
	"wikigraph-backend/domain/core/valueobjects"
)

// Reheat levels requested from the layout engine after mutations
const (
	ReheatMutation = 0.3
	ReheatResize   = 0.2
	ReheatPrune    = 1.0
)

// Stats is the node/link count pair reported to the stats callback
type Stats struct {
	NodeCount int `json:"nodeCount"`
	LinkCount int `json:"linkCount"`
}

// NodeSpec describes a node to add. Position and Meta are optional: a nil
// position gets a randomized placement around the view center, and Meta is
// merged over the freshly defaulted metadata entry.
type NodeSpec struct {
	ID       string
	Title    string
	Position *valueobjects.Vector
	Meta     *entities.MetadataPatch
}

// MetadataUpdate pairs a node id with a partial metadata patch
type MetadataUpdate struct {
	ID    string
	Patch *entities.MetadataPatch
}

// LinkApplyResult reports which links an AddLinks call inserted and which
// existing links it upgraded
type LinkApplyResult struct {
	Added   []entities.Link
	Updated []entities.Link
}

// NodeView is a read-only projection of a node with its metadata and degree
type NodeView struct {
	Node   entities.Node
	Meta   entities.Metadata
	Degree int
}

// Graph is the aggregate root for the topic graph. It owns nodes, links and
// per-node metadata, and keeps them consistent under bursty asynchronous
// mutation: every link's endpoints always reference present nodes, node and
// link ids are unique, and each node has exactly one metadata entry.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*entities.Node
	links map[string]entities.Link
	meta  map[string]*entities.Metadata

	center valueobjects.Vector
	jitter float64
	rng    *rand.Rand

	onStats        func(Stats)
	onLinksApplied func(LinkApplyResult)
	onReheat       func(alpha float64)
	onReconcile    func()

	logger *zap.Logger
}

// NewGraph creates an empty graph centered on the origin
func NewGraph(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		nodes:  make(map[string]*entities.Node),
		links:  make(map[string]entities.Link),
		meta:   make(map[string]*entities.Metadata),
		jitter: 60,
		rng:    rand.New(rand.NewSource(rand.Int63())),
		logger: logger,
	}
}

// SetViewCenter moves the default-placement center for new nodes
func (g *Graph) SetViewCenter(center valueobjects.Vector) {
	g.mu.Lock()
	g.center = center
	g.mu.Unlock()
}

// OnStats registers the statistics callback
func (g *Graph) OnStats(fn func(Stats)) {
	g.mu.Lock()
	g.onStats = fn
	g.mu.Unlock()
}

// OnLinksApplied registers the links-applied callback
func (g *Graph) OnLinksApplied(fn func(LinkApplyResult)) {
	g.mu.Lock()
	g.onLinksApplied = fn
	g.mu.Unlock()
}

// OnReheat registers the layout reheat callback
func (g *Graph) OnReheat(fn func(alpha float64)) {
	g.mu.Lock()
	g.onReheat = fn
	g.mu.Unlock()
}

// OnReconcile registers the render reconciliation callback
func (g *Graph) OnReconcile(fn func()) {
	g.mu.Lock()
	g.onReconcile = fn
	g.mu.Unlock()
}

// AddNodes adds every node not already present, assigning a randomized
// centered position when none is given and merging any caller-supplied
// metadata over the defaults. Idempotent per id. Returns the number of nodes
// actually added; the stats callback and a layout reheat fire only when that
// number is positive.
func (g *Graph) AddNodes(specs []NodeSpec) int {
	g.mu.Lock()
	added := 0
	for _, spec := range specs {
		node, err := entities.NewNode(spec.ID, spec.Title)
		if err != nil {
			g.logger.Debug("Skipping invalid node", zap.String("id", spec.ID), zap.Error(err))
			continue
		}
		if _, exists := g.nodes[node.ID]; exists {
			continue
		}
		if spec.Position != nil {
			node.Position = *spec.Position
		} else {
			node.Position = valueobjects.Vector{
				X: g.center.X + (g.rng.Float64()-0.5)*2*g.jitter,
				Y: g.center.Y + (g.rng.Float64()-0.5)*2*g.jitter,
			}
		}
		g.nodes[node.ID] = node
		entry := &entities.Metadata{}
		entry.Apply(spec.Meta)
		g.meta[node.ID] = entry
		added++
	}
	g.mu.Unlock()

	if added > 0 {
		g.notifyStats()
		g.notifyReheat(ReheatMutation)
		g.notifyReconcile()
	}
	return added
}

// AddLinks applies a batch of links. Links whose endpoints are not both
// present are dropped silently. A link joining a pair that is already
// connected upgrades the existing link instead of inserting: an incoming
// path type wins over a non-path type, and incoming context fills an empty
// context but never overwrites one. A caller-supplied id that already names a
// link between a different pair is re-derived from the endpoints so ids stay
// unique. The links-applied callback fires exactly once per call when
// anything was added or updated.
func (g *Graph) AddLinks(links []entities.Link) LinkApplyResult {
	g.mu.Lock()
	var result LinkApplyResult
	for _, raw := range links {
		link := raw.Normalized()
		if link.Source == "" || link.Target == "" {
			continue
		}
		if _, ok := g.nodes[link.Source]; !ok {
			g.logger.Debug("Dropping link with missing source", zap.String("source", link.Source))
			continue
		}
		if _, ok := g.nodes[link.Target]; !ok {
			g.logger.Debug("Dropping link with missing target", zap.String("target", link.Target))
			continue
		}

		if existingID, ok := g.linkIDBetween(link.Source, link.Target); ok {
			existing := g.links[existingID]
			changed := false
			if link.Type == entities.LinkTypePath && existing.Type != entities.LinkTypePath {
				existing.Type = entities.LinkTypePath
				changed = true
			}
			if link.Context != "" && existing.Context == "" {
				existing.Context = link.Context
				changed = true
			}
			if changed {
				g.links[existingID] = existing
				result.Updated = append(result.Updated, existing)
			}
			continue
		}

		// An explicit caller id may collide with a link joining a different
		// pair; re-derive rather than overwrite it
		if existing, taken := g.links[link.ID]; taken && !existing.ConnectsPair(link.Source, link.Target) {
			link.ID = entities.DeriveLinkID(link.Source, link.Target)
			if _, taken := g.links[link.ID]; taken {
				g.logger.Debug("Dropping link with conflicting id", zap.String("id", raw.ID))
				continue
			}
		}
		g.links[link.ID] = link
		result.Added = append(result.Added, link)
	}
	g.mu.Unlock()

	if len(result.Added) > 0 || len(result.Updated) > 0 {
		g.notifyLinksApplied(result)
		g.notifyReconcile()
	}
	if len(result.Added) > 0 {
		g.notifyStats()
		g.notifyReheat(ReheatMutation)
	}
	return result
}

// DeleteNode removes the node, every link incident to it, and its metadata
// entry. Returns false when the node is not present.
func (g *Graph) DeleteNode(id string) bool {
	g.mu.Lock()
	if _, exists := g.nodes[id]; !exists {
		g.mu.Unlock()
		return false
	}
	for linkID, link := range g.links {
		if link.Touches(id) {
			delete(g.links, linkID)
		}
	}
	delete(g.nodes, id)
	delete(g.meta, id)
	g.mu.Unlock()

	g.notifyStats()
	g.notifyReheat(ReheatMutation)
	g.notifyReconcile()
	return true
}

// PruneNodes removes every loosely connected node (two or fewer incident
// links), together with the incident links and metadata, in a single pass.
// Degrees are computed once before any removal, so a well-connected hub
// whose neighbors all get pruned survives until the next call; that
// per-call behavior is part of the contract. Returns the number of nodes
// removed.
func (g *Graph) PruneNodes() int {
	g.mu.Lock()
	degrees := make(map[string]int, len(g.nodes))
	for _, link := range g.links {
		degrees[link.Source]++
		degrees[link.Target]++
	}

	removed := 0
	for id := range g.nodes {
		if degrees[id] > 2 {
			continue
		}
		for linkID, link := range g.links {
			if link.Touches(id) {
				delete(g.links, linkID)
			}
		}
		delete(g.nodes, id)
		delete(g.meta, id)
		removed++
	}
	g.mu.Unlock()

	if removed > 0 {
		g.logger.Info("Pruned low-degree nodes", zap.Int("removed", removed))
		g.notifyStats()
		g.notifyReheat(ReheatPrune)
		g.notifyReconcile()
	}
	return removed
}

// SetNodeMetadata shallow-merges a partial patch over the node's metadata
// entry, creating a default entry first if none exists. Triggers a
// reconciliation pass but not a layout reheat.
func (g *Graph) SetNodeMetadata(id string, patch *entities.MetadataPatch) {
	g.SetNodesMetadata([]MetadataUpdate{{ID: id, Patch: patch}})
}

// SetNodesMetadata applies several metadata patches in one call
func (g *Graph) SetNodesMetadata(updates []MetadataUpdate) {
	g.mu.Lock()
	for _, update := range updates {
		g.metadataEntry(update.ID).Apply(update.Patch)
	}
	g.mu.Unlock()
	g.notifyReconcile()
}

// ClearFocusHighlight drops the focus target, focus neighbors and focus
// dimming from every node in one pass
func (g *Graph) ClearFocusHighlight() {
	g.mu.Lock()
	for _, entry := range g.meta {
		entry.IsFocusTarget = false
		entry.IsFocusNeighbor = false
		entry.IsDimmed = false
	}
	g.mu.Unlock()
	g.notifyReconcile()
}

// Clear removes every node, link and metadata entry
func (g *Graph) Clear() {
	g.mu.Lock()
	g.nodes = make(map[string]*entities.Node)
	g.links = make(map[string]entities.Link)
	g.meta = make(map[string]*entities.Metadata)
	g.mu.Unlock()

	g.notifyStats()
	g.notifyReconcile()
}

// Query helpers

// HasNode reports whether the node id is present
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// NodeDegree returns the count of links incident to the node
func (g *Graph) NodeDegree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	degree := 0
	for _, link := range g.links {
		if link.Touches(id) {
			degree++
		}
	}
	return degree
}

// LinkBetween finds a link joining the two ids in either direction
func (g *Graph) LinkBetween(a, b string) (entities.Link, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id, ok := g.linkIDBetween(a, b); ok {
		return g.links[id], true
	}
	return entities.Link{}, false
}

// LinkByID returns the link with the given id
func (g *Graph) LinkByID(id string) (entities.Link, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	link, ok := g.links[id]
	return link, ok
}

// NodeIDs returns the ids of every node currently present
func (g *Graph) NodeIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Stats returns the current node and link counts
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Stats{NodeCount: len(g.nodes), LinkCount: len(g.links)}
}

// NodeMetadata returns a copy of the node's metadata entry, default-
// constructing nothing: absent nodes report a zero entry and false
func (g *Graph) NodeMetadata(id string) (entities.Metadata, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if entry, ok := g.meta[id]; ok {
		return *entry, true
	}
	return entities.Metadata{}, false
}

// NodePosition returns the node's current position
func (g *Graph) NodePosition(id string) (valueobjects.Vector, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if node, ok := g.nodes[id]; ok {
		return node.Position, true
	}
	return valueobjects.Vector{}, false
}

// PinNode fixes a node at the given position (drag start / drag move)
func (g *Graph) PinNode(id string, at valueobjects.Vector) {
	g.mu.Lock()
	if node, ok := g.nodes[id]; ok {
		node.Pin(at)
	}
	g.mu.Unlock()
}

// UnpinNode releases a node back to the simulation (drag end)
func (g *Graph) UnpinNode(id string) {
	g.mu.Lock()
	if node, ok := g.nodes[id]; ok {
		node.Unpin()
	}
	g.mu.Unlock()
}

// NodeViews returns a read-only projection of every node with its metadata
// and degree, for rendering
func (g *Graph) NodeViews() []NodeView {
	g.mu.RLock()
	defer g.mu.RUnlock()
	degrees := make(map[string]int, len(g.nodes))
	for _, link := range g.links {
		degrees[link.Source]++
		degrees[link.Target]++
	}
	views := make([]NodeView, 0, len(g.nodes))
	for id, node := range g.nodes {
		entry := g.meta[id]
		if entry == nil {
			entry = &entities.Metadata{}
		}
		views = append(views, NodeView{Node: *node, Meta: *entry, Degree: degrees[id]})
	}
	return views
}

// Links returns a copy of every link
func (g *Graph) Links() []entities.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	links := make([]entities.Link, 0, len(g.links))
	for _, link := range g.links {
		links = append(links, link)
	}
	return links
}

// FramePositions returns the current position of every node, keyed by id.
// Positions are read live each frame and never cached by callers.
func (g *Graph) FramePositions() map[string]valueobjects.Vector {
	g.mu.RLock()
	defer g.mu.RUnlock()
	positions := make(map[string]valueobjects.Vector, len(g.nodes))
	for id, node := range g.nodes {
		positions[id] = node.Position
	}
	return positions
}

// ForEachFrame runs fn under the write lock with direct access to the node
// set and links. It exists for the layout engine's per-frame integration;
// node references must not be retained past the call.
func (g *Graph) ForEachFrame(fn func(nodes []*entities.Node, links []entities.Link, degree func(string) int)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := make([]*entities.Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	links := make([]entities.Link, 0, len(g.links))
	for _, link := range g.links {
		links = append(links, link)
	}
	degrees := make(map[string]int, len(g.nodes))
	for _, link := range links {
		degrees[link.Source]++
		degrees[link.Target]++
	}
	fn(nodes, links, func(id string) int { return degrees[id] })
}

// Private helpers

// metadataEntry returns the metadata entry for id, default-constructing it
// on first reference. Caller must hold the write lock.
func (g *Graph) metadataEntry(id string) *entities.Metadata {
	if entry, ok := g.meta[id]; ok {
		return entry
	}
	entry := &entities.Metadata{}
	g.meta[id] = entry
	return entry
}

// linkIDBetween finds the id of a link joining a and b in either direction.
// Caller must hold at least the read lock.
func (g *Graph) linkIDBetween(a, b string) (string, bool) {
	for id, link := range g.links {
		if link.ConnectsPair(a, b) {
			return id, true
		}
	}
	return "", false
}

func (g *Graph) notifyStats() {
	g.mu.RLock()
	fn := g.onStats
	g.mu.RUnlock()
	if fn != nil {
		fn(g.Stats())
	}
}

func (g *Graph) notifyLinksApplied(result LinkApplyResult) {
	g.mu.RLock()
	fn := g.onLinksApplied
	g.mu.RUnlock()
	if fn != nil {
		fn(result)
	}
}

func (g *Graph) notifyReheat(alpha float64) {
	g.mu.RLock()
	fn := g.onReheat
	g.mu.RUnlock()
	if fn != nil {
		fn(alpha)
	}
}

func (g *Graph) notifyReconcile() {
	g.mu.RLock()
	fn := g.onReconcile
	g.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
