package entities

import (
	"strings"

	"wikigraph-backend/domain/core/valueobjects"
	pkgerrors "wikigraph-backend/pkg/errors"
)

// Node represents a single encyclopedia topic in the graph.
// The ID is the canonical topic title and is the only cross-reference key;
// Title is display-only and normally equal to ID.
type Node struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Position valueobjects.Vector `json:"position"`
	Velocity valueobjects.Vector `json:"velocity"`

	// Pinned holds the position a drag or layout pin has fixed the node to.
	// nil means the node is free to move with the simulation.
	Pinned *valueobjects.Vector `json:"pinned,omitempty"`
}

// NewNode creates a node for the given topic id
func NewNode(id, title string) (*Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}
	if title == "" {
		title = id
	}
	return &Node{ID: id, Title: title}, nil
}

// Pin fixes the node at the given position and stops its motion
func (n *Node) Pin(at valueobjects.Vector) {
	pinned := at
	n.Pinned = &pinned
	n.Position = at
	n.Velocity = valueobjects.Vector{}
}

// Unpin releases the node back to the simulation
func (n *Node) Unpin() {
	n.Pinned = nil
}

// IsPinned reports whether the node is currently pinned
func (n *Node) IsPinned() bool {
	return n.Pinned != nil
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	c := *n
	if n.Pinned != nil {
		pinned := *n.Pinned
		c.Pinned = &pinned
	}
	return &c
}
