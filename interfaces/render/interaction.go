package render

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
	"wikigraph-backend/domain/core/valueobjects"
)

// DragThreshold is the pointer travel, in screen pixels, separating a click
// from a drag
const DragThreshold = 5.0

// Transform is the pan/zoom mapping from world to screen space:
// screen = world*K + T
type Transform struct {
	K  float64 `json:"k"`
	TX float64 `json:"tx"`
	TY float64 `json:"ty"`
}

// IdentityTransform returns the unscaled, unpanned transform
func IdentityTransform() Transform {
	return Transform{K: 1}
}

// Apply projects a world position into screen space
func (t Transform) Apply(world valueobjects.Vector) (float64, float64) {
	return world.X*t.K + t.TX, world.Y*t.K + t.TY
}

// Invert projects a screen position into world space
func (t Transform) Invert(sx, sy float64) valueobjects.Vector {
	return valueobjects.Vector{X: (sx - t.TX) / t.K, Y: (sy - t.TY) / t.K}
}

// HitKind classifies what a pointer event landed on
type HitKind int

const (
	HitBackground HitKind = iota
	HitNode
	HitLink
)

// Hit is the resolved target of a pointer event
type Hit struct {
	Kind HitKind
	ID   string
}

// PointerEvent is a raw pointer event in screen space with modifier state
type PointerEvent struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Modifier bool    `json:"modifier"`
}

// Interaction interprets pointer gestures against the graph: dragging a node
// pins it to the pointer, a modifier-drag on empty canvas rubber-bands a
// screen-space selection rectangle, and plain releases resolve to node, link
// or background clicks.
type Interaction struct {
	graph  *aggregates.Graph
	logger *zap.Logger

	mu        sync.Mutex
	transform Transform

	dragNode   string
	dragStartX float64
	dragStartY float64
	dragMoved  bool

	rectActive bool
	rectStartX float64
	rectStartY float64
	rectEndX   float64
	rectEndY   float64

	pressedHit *Hit
	selected   map[string]bool

	onSelectionChanged func(ids []string)
	onNodeClick        func(id string, ev PointerEvent)
	onLinkClick        func(id string, ev PointerEvent)
	onBackgroundClick  func(ev PointerEvent)
}

// NewInteraction creates a controller over the graph with the identity
// transform
func NewInteraction(graph *aggregates.Graph, logger *zap.Logger) *Interaction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interaction{
		graph:     graph,
		logger:    logger,
		transform: IdentityTransform(),
		selected:  make(map[string]bool),
	}
}

// SetTransform updates the pan/zoom transform used for projection
func (i *Interaction) SetTransform(t Transform) {
	i.mu.Lock()
	if t.K != 0 {
		i.transform = t
	}
	i.mu.Unlock()
}

// OnSelectionChanged registers the rectangle-selection callback
func (i *Interaction) OnSelectionChanged(fn func(ids []string)) {
	i.mu.Lock()
	i.onSelectionChanged = fn
	i.mu.Unlock()
}

// OnNodeClick registers the node click callback
func (i *Interaction) OnNodeClick(fn func(id string, ev PointerEvent)) {
	i.mu.Lock()
	i.onNodeClick = fn
	i.mu.Unlock()
}

// OnLinkClick registers the link click callback
func (i *Interaction) OnLinkClick(fn func(id string, ev PointerEvent)) {
	i.mu.Lock()
	i.onLinkClick = fn
	i.mu.Unlock()
}

// OnBackgroundClick registers the empty-canvas click callback
func (i *Interaction) OnBackgroundClick(fn func(ev PointerEvent)) {
	i.mu.Lock()
	i.onBackgroundClick = fn
	i.mu.Unlock()
}

// PointerDown begins a gesture. A node press starts a potential drag and
// pins the node where it stands; a modifier press on empty canvas starts
// the selection rectangle.
func (i *Interaction) PointerDown(ev PointerEvent, hit Hit) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pressedHit = &hit

	switch hit.Kind {
	case HitNode:
		if position, ok := i.graph.NodePosition(hit.ID); ok {
			i.graph.PinNode(hit.ID, position)
			i.dragNode = hit.ID
			i.dragStartX = ev.X
			i.dragStartY = ev.Y
			i.dragMoved = false
		}
	case HitBackground:
		if ev.Modifier {
			i.rectActive = true
			i.rectStartX, i.rectStartY = ev.X, ev.Y
			i.rectEndX, i.rectEndY = ev.X, ev.Y
		}
	}
}

// PointerMove advances the active gesture. A node drag moves the pin only
// once the pointer has travelled past the click threshold.
func (i *Interaction) PointerMove(ev PointerEvent) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dragNode != "" {
		dx := ev.X - i.dragStartX
		dy := ev.Y - i.dragStartY
		if !i.dragMoved && math.Hypot(dx, dy) <= DragThreshold {
			return
		}
		i.dragMoved = true
		i.graph.PinNode(i.dragNode, i.transform.Invert(ev.X, ev.Y))
		return
	}

	if i.rectActive {
		i.rectEndX, i.rectEndY = ev.X, ev.Y
	}
}

// PointerUp ends the gesture: a drag releases the node back to the
// simulation, a rectangle resolves the selection, and anything that never
// became a drag resolves as a click on whatever was pressed.
func (i *Interaction) PointerUp(ev PointerEvent) {
	i.mu.Lock()

	if i.dragNode != "" {
		id := i.dragNode
		moved := i.dragMoved
		i.dragNode = ""
		i.dragMoved = false
		i.pressedHit = nil
		i.graph.UnpinNode(id)
		fn := i.onNodeClick
		i.mu.Unlock()
		if !moved && fn != nil {
			fn(id, ev)
		}
		return
	}

	if i.rectActive {
		i.rectActive = false
		i.rectEndX, i.rectEndY = ev.X, ev.Y
		i.pressedHit = nil
		selected, fn := i.resolveRectLocked()
		i.mu.Unlock()
		if fn != nil {
			fn(selected)
		}
		return
	}

	hit := i.pressedHit
	i.pressedHit = nil
	nodeFn, linkFn, backgroundFn := i.onNodeClick, i.onLinkClick, i.onBackgroundClick
	i.mu.Unlock()

	if hit == nil {
		return
	}
	switch hit.Kind {
	case HitNode:
		if nodeFn != nil {
			nodeFn(hit.ID, ev)
		}
	case HitLink:
		if linkFn != nil {
			linkFn(hit.ID, ev)
		}
	case HitBackground:
		if backgroundFn != nil {
			backgroundFn(ev)
		}
	}
}

// Selection returns the ids currently bulk-selected
func (i *Interaction) Selection() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := make([]string, 0, len(i.selected))
	for id := range i.selected {
		ids = append(ids, id)
	}
	return ids
}

// Focus highlights one node and its direct neighbors, dimming everything
// else. Passing an unknown id clears any active focus instead.
func (i *Interaction) Focus(id string) {
	if !i.graph.HasNode(id) {
		i.graph.ClearFocusHighlight()
		return
	}

	neighbors := make(map[string]bool)
	for _, link := range i.graph.Links() {
		if link.Source == id {
			neighbors[link.Target] = true
		}
		if link.Target == id {
			neighbors[link.Source] = true
		}
	}

	updates := make([]aggregates.MetadataUpdate, 0)
	for _, nodeID := range i.graph.NodeIDs() {
		patch := &entities.MetadataPatch{
			IsFocusTarget:   entities.Bool(nodeID == id),
			IsFocusNeighbor: entities.Bool(neighbors[nodeID]),
			IsDimmed:        entities.Bool(nodeID != id && !neighbors[nodeID]),
		}
		updates = append(updates, aggregates.MetadataUpdate{ID: nodeID, Patch: patch})
	}
	i.graph.SetNodesMetadata(updates)
}

// ClearFocus removes any focus highlight
func (i *Interaction) ClearFocus() {
	i.graph.ClearFocusHighlight()
}

// resolveRectLocked projects every node through the transform into screen
// space and selects those inside the rectangle, bounds inclusive. Returns
// the selection and the callback for the caller to fire outside the lock.
func (i *Interaction) resolveRectLocked() ([]string, func(ids []string)) {
	minX := math.Min(i.rectStartX, i.rectEndX)
	maxX := math.Max(i.rectStartX, i.rectEndX)
	minY := math.Min(i.rectStartY, i.rectEndY)
	maxY := math.Max(i.rectStartY, i.rectEndY)

	positions := i.graph.FramePositions()
	selected := make([]string, 0)
	updates := make([]aggregates.MetadataUpdate, 0, len(positions))
	next := make(map[string]bool, len(positions))

	for id, world := range positions {
		sx, sy := i.transform.Apply(world)
		inside := sx >= minX && sx <= maxX && sy >= minY && sy <= maxY
		if inside {
			selected = append(selected, id)
			next[id] = true
		}
		if inside != i.selected[id] {
			updates = append(updates, aggregates.MetadataUpdate{
				ID:    id,
				Patch: &entities.MetadataPatch{IsBulkSelected: entities.Bool(inside)},
			})
		}
	}

	i.selected = next
	if len(updates) > 0 {
		i.graph.SetNodesMetadata(updates)
	}
	return selected, i.onSelectionChanged
}
