package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
	"wikigraph-backend/domain/core/valueobjects"
)

func newInteractionFixture(t *testing.T) (*aggregates.Graph, *Interaction) {
	t.Helper()
	graph := aggregates.NewGraph(zap.NewNop())
	return graph, NewInteraction(graph, zap.NewNop())
}

func nodeAt(t *testing.T, graph *aggregates.Graph, id string, x, y float64) {
	t.Helper()
	graph.AddNodes([]aggregates.NodeSpec{{ID: id, Position: &valueobjects.Vector{X: x, Y: y}}})
}

func pinned(t *testing.T, graph *aggregates.Graph, id string) bool {
	t.Helper()
	for _, view := range graph.NodeViews() {
		if view.Node.ID == id {
			return view.Node.IsPinned()
		}
	}
	t.Fatalf("node %s not found", id)
	return false
}

func TestDragPinsAndReleases(t *testing.T) {
	graph, interaction := newInteractionFixture(t)
	nodeAt(t, graph, "A", 100, 100)

	interaction.PointerDown(PointerEvent{X: 100, Y: 100}, Hit{Kind: HitNode, ID: "A"})
	assert.True(t, pinned(t, graph, "A"), "drag start pins the node in place")

	interaction.PointerMove(PointerEvent{X: 150, Y: 120})
	position, _ := graph.NodePosition("A")
	assert.Equal(t, valueobjects.Vector{X: 150, Y: 120}, position)

	interaction.PointerUp(PointerEvent{X: 150, Y: 120})
	assert.False(t, pinned(t, graph, "A"), "drag end releases the node")
}

func TestDragThresholdSeparatesClickFromDrag(t *testing.T) {
	graph, interaction := newInteractionFixture(t)
	nodeAt(t, graph, "A", 100, 100)

	var clicked string
	interaction.OnNodeClick(func(id string, _ PointerEvent) { clicked = id })

	// Movement inside the threshold does not move the node and resolves
	// as a click on release
	interaction.PointerDown(PointerEvent{X: 100, Y: 100}, Hit{Kind: HitNode, ID: "A"})
	interaction.PointerMove(PointerEvent{X: 103, Y: 102})
	position, _ := graph.NodePosition("A")
	assert.Equal(t, valueobjects.Vector{X: 100, Y: 100}, position)

	interaction.PointerUp(PointerEvent{X: 103, Y: 102})
	assert.Equal(t, "A", clicked)

	// Movement past the threshold is a drag, not a click
	clicked = ""
	interaction.PointerDown(PointerEvent{X: 100, Y: 100}, Hit{Kind: HitNode, ID: "A"})
	interaction.PointerMove(PointerEvent{X: 110, Y: 110})
	interaction.PointerUp(PointerEvent{X: 110, Y: 110})
	assert.Empty(t, clicked)
}

func TestDragProjectsThroughTransform(t *testing.T) {
	graph, interaction := newInteractionFixture(t)
	nodeAt(t, graph, "A", 0, 0)

	// k=2, pan (10, 20): screen (110, 220) is world (50, 100)
	interaction.SetTransform(Transform{K: 2, TX: 10, TY: 20})

	interaction.PointerDown(PointerEvent{X: 10, Y: 20}, Hit{Kind: HitNode, ID: "A"})
	interaction.PointerMove(PointerEvent{X: 110, Y: 220})

	position, _ := graph.NodePosition("A")
	assert.Equal(t, valueobjects.Vector{X: 50, Y: 100}, position)
}

func TestRectSelectionInclusiveUnderTransform(t *testing.T) {
	graph, interaction := newInteractionFixture(t)
	nodeAt(t, graph, "OnEdge", 50, 50)   // screen (110, 120)
	nodeAt(t, graph, "Inside", 20, 20)   // screen (50, 60)
	nodeAt(t, graph, "Outside", 200, 200) // screen (410, 420)

	interaction.SetTransform(Transform{K: 2, TX: 10, TY: 20})

	var selected []string
	interaction.OnSelectionChanged(func(ids []string) { selected = ids })

	// Rectangle whose far corner lands exactly on OnEdge's screen position
	interaction.PointerDown(PointerEvent{X: 0, Y: 0, Modifier: true}, Hit{Kind: HitBackground})
	interaction.PointerMove(PointerEvent{X: 110, Y: 120, Modifier: true})
	interaction.PointerUp(PointerEvent{X: 110, Y: 120, Modifier: true})

	assert.ElementsMatch(t, []string{"OnEdge", "Inside"}, selected, "boundary is inclusive")

	meta, _ := graph.NodeMetadata("OnEdge")
	assert.True(t, meta.IsBulkSelected)
	meta, _ = graph.NodeMetadata("Outside")
	assert.False(t, meta.IsBulkSelected)

	// A later empty selection clears the previous one
	interaction.PointerDown(PointerEvent{X: 500, Y: 500, Modifier: true}, Hit{Kind: HitBackground})
	interaction.PointerUp(PointerEvent{X: 510, Y: 510, Modifier: true})

	assert.Empty(t, selected)
	meta, _ = graph.NodeMetadata("OnEdge")
	assert.False(t, meta.IsBulkSelected)
}

func TestClickRouting(t *testing.T) {
	graph, interaction := newInteractionFixture(t)
	nodeAt(t, graph, "A", 0, 0)
	graph.AddNodes([]aggregates.NodeSpec{{ID: "B"}})

	var background, node, link int
	interaction.OnBackgroundClick(func(PointerEvent) { background++ })
	interaction.OnNodeClick(func(string, PointerEvent) { node++ })
	interaction.OnLinkClick(func(string, PointerEvent) { link++ })

	// Plain background click, no modifier: background only
	interaction.PointerDown(PointerEvent{X: 5, Y: 5}, Hit{Kind: HitBackground})
	interaction.PointerUp(PointerEvent{X: 5, Y: 5})
	assert.Equal(t, 1, background)
	assert.Zero(t, node)

	// Link click routes separately
	interaction.PointerDown(PointerEvent{X: 5, Y: 5}, Hit{Kind: HitLink, ID: "A-B"})
	interaction.PointerUp(PointerEvent{X: 5, Y: 5})
	assert.Equal(t, 1, link)
	assert.Equal(t, 1, background)
}

func TestFocusDimsUnrelatedNodes(t *testing.T) {
	graph, interaction := newInteractionFixture(t)
	for _, id := range []string{"A", "B", "C"} {
		nodeAt(t, graph, id, 0, 0)
	}
	graph.AddLinks([]entities.Link{{Source: "A", Target: "B"}})

	interaction.Focus("A")

	metaA, _ := graph.NodeMetadata("A")
	assert.True(t, metaA.IsFocusTarget)
	assert.False(t, metaA.IsDimmed)

	metaB, _ := graph.NodeMetadata("B")
	assert.True(t, metaB.IsFocusNeighbor)
	assert.False(t, metaB.IsDimmed)

	metaC, _ := graph.NodeMetadata("C")
	assert.True(t, metaC.IsDimmed)

	interaction.ClearFocus()
	metaC, _ = graph.NodeMetadata("C")
	assert.False(t, metaC.IsDimmed)

	// Focusing something that no longer exists clears instead
	interaction.Focus("A")
	interaction.Focus("Missing")
	metaA, _ = graph.NodeMetadata("A")
	assert.False(t, metaA.IsFocusTarget)
}
