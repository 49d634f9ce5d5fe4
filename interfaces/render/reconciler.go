package render

import (
	"sync"

	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
)

// Reconciler maintains the drawable element set on a Surface via a keyed
// diff: new keys enter, vanished keys are removed, retained keys receive
// in-place updates only. This keeps the surface's element identity stable
// across mutations, which is what makes enter/exit transitions possible.
//
// Reconcile runs on model mutation and recomputes the full encoding; Tick
// runs per animation frame and refreshes geometry only, reading endpoint
// positions live from the model rather than caching them.
type Reconciler struct {
	graph   *aggregates.Graph
	surface Surface
	logger  *zap.Logger

	mu         sync.Mutex
	knownNodes map[string]bool
	knownLinks map[string]bool
}

// NewReconciler creates a reconciler over the graph and surface
func NewReconciler(graph *aggregates.Graph, surface Surface, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		graph:      graph,
		surface:    surface,
		logger:     logger,
		knownNodes: make(map[string]bool),
		knownLinks: make(map[string]bool),
	}
}

// Reconcile recomputes every element's visual encoding and diffs the keyed
// sets against the surface
func (r *Reconciler) Reconcile() {
	views := r.graph.NodeViews()
	links := r.graph.Links()

	metaByID := make(map[string]entities.Metadata, len(views))
	for _, view := range views {
		metaByID[view.Node.ID] = view.Meta
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	nextNodes := make(map[string]bool, len(views))
	for _, view := range views {
		element := r.nodeElement(view)
		nextNodes[view.Node.ID] = true
		if r.knownNodes[view.Node.ID] {
			r.surface.UpdateNode(element)
		} else {
			r.surface.EnterNode(element)
		}
	}
	for id := range r.knownNodes {
		if !nextNodes[id] {
			r.surface.RemoveNode(id)
		}
	}

	nextLinks := make(map[string]bool, len(links))
	for _, link := range links {
		element, ok := r.linkElement(link, metaByID)
		if !ok {
			continue
		}
		nextLinks[link.ID] = true
		if r.knownLinks[link.ID] {
			r.surface.UpdateLink(element)
		} else {
			r.surface.EnterLink(element)
		}
	}
	for id := range r.knownLinks {
		if !nextLinks[id] {
			r.surface.RemoveLink(id)
		}
	}

	r.knownNodes = nextNodes
	r.knownLinks = nextLinks
}

// Tick refreshes element geometry from live node positions. Link endpoints
// and gradient geometry are recomputed each call so they track node motion.
func (r *Reconciler) Tick() {
	views := r.graph.NodeViews()
	links := r.graph.Links()

	metaByID := make(map[string]entities.Metadata, len(views))
	for _, view := range views {
		metaByID[view.Node.ID] = view.Meta
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, view := range views {
		if !r.knownNodes[view.Node.ID] {
			continue
		}
		r.surface.UpdateNode(r.nodeElement(view))
	}
	for _, link := range links {
		if !r.knownLinks[link.ID] {
			continue
		}
		if element, ok := r.linkElement(link, metaByID); ok {
			r.surface.UpdateLink(element)
		}
	}
}

func (r *Reconciler) nodeElement(view aggregates.NodeView) NodeElement {
	return NodeElement{
		ID:      view.Node.ID,
		Label:   view.Node.Title,
		X:       view.Node.Position.X,
		Y:       view.Node.Position.Y,
		Color:   nodeColor(view.Meta),
		Opacity: nodeOpacity(view.Meta),
		Scale:   nodeScale(view.Meta),
		Radius:  nodeRadius(view.Degree),
		Image:   view.Meta.Thumbnail,
	}
}

// linkElement builds a drawable link, reading endpoint positions live. A
// link whose endpoints are both path endpoints gets the two-stop gradient
// instead of a flat stroke.
func (r *Reconciler) linkElement(link entities.Link, metaByID map[string]entities.Metadata) (LinkElement, bool) {
	sourcePos, okSource := r.graph.NodePosition(link.Source)
	targetPos, okTarget := r.graph.NodePosition(link.Target)
	if !okSource || !okTarget {
		return LinkElement{}, false
	}

	sourceMeta := metaByID[link.Source]
	targetMeta := metaByID[link.Target]

	element := LinkElement{
		ID:      link.ID,
		Source:  link.Source,
		Target:  link.Target,
		X1:      sourcePos.X,
		Y1:      sourcePos.Y,
		X2:      targetPos.X,
		Y2:      targetPos.Y,
		Color:   linkColor(link.Type),
		Opacity: linkOpacity(sourceMeta, targetMeta),
	}

	if sourceMeta.IsPathEndpoint && targetMeta.IsPathEndpoint {
		element.Gradient = &Gradient{
			FromColor: gradientFrom,
			ToColor:   gradientTo,
			X1:        sourcePos.X,
			Y1:        sourcePos.Y,
			X2:        targetPos.X,
			Y2:        targetPos.Y,
		}
	}
	return element, true
}
