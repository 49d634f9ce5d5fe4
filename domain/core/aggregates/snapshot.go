package aggregates

import (
	"wikigraph-backend/domain/core/entities"
)

// Snapshot is a deep, self-contained copy of the full graph state: nodes
// with their positions, links with resolved ids, and the metadata map. It is
// the unit of undo/redo.
type Snapshot struct {
	Nodes []entities.Node              `json:"nodes"`
	Links []entities.Link              `json:"links"`
	Meta  map[string]entities.Metadata `json:"meta"`
}

// Snapshot captures the current state as an immutable deep copy
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snapshot := Snapshot{
		Nodes: make([]entities.Node, 0, len(g.nodes)),
		Links: make([]entities.Link, 0, len(g.links)),
		Meta:  make(map[string]entities.Metadata, len(g.meta)),
	}
	for _, node := range g.nodes {
		snapshot.Nodes = append(snapshot.Nodes, *node.Clone())
	}
	for _, link := range g.links {
		snapshot.Links = append(snapshot.Links, link)
	}
	for id, entry := range g.meta {
		snapshot.Meta[id] = *entry
	}
	return snapshot
}

// RestoreSnapshot clears the graph and rebuilds node, link and metadata
// state from the snapshot, then reheats the layout
func (g *Graph) RestoreSnapshot(snapshot Snapshot) {
	g.mu.Lock()
	g.nodes = make(map[string]*entities.Node, len(snapshot.Nodes))
	g.links = make(map[string]entities.Link, len(snapshot.Links))
	g.meta = make(map[string]*entities.Metadata, len(snapshot.Meta))

	for _, node := range snapshot.Nodes {
		restored := node
		g.nodes[restored.ID] = restored.Clone()
	}
	for _, link := range snapshot.Links {
		normalized := link.Normalized()
		if _, ok := g.nodes[normalized.Source]; !ok {
			continue
		}
		if _, ok := g.nodes[normalized.Target]; !ok {
			continue
		}
		g.links[normalized.ID] = normalized
	}
	for id, entry := range snapshot.Meta {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		restored := entry
		g.meta[id] = &restored
	}
	// Every node present keeps exactly one metadata entry
	for id := range g.nodes {
		if _, ok := g.meta[id]; !ok {
			g.meta[id] = &entities.Metadata{}
		}
	}
	g.mu.Unlock()

	g.notifyStats()
	g.notifyReheat(ReheatMutation)
	g.notifyReconcile()
}
