// Package render reconciles the graph model onto an abstract drawing
// surface and interprets pointer interaction against it.
package render

// NodeElement is one drawable node with its computed visual encoding
type NodeElement struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale"`
	Radius  float64 `json:"radius"`
	Image   string  `json:"image,omitempty"`
}

// Gradient is a two-stop color ramp between fixed endpoint colors whose
// geometry tracks the live link endpoints
type Gradient struct {
	FromColor string  `json:"fromColor"`
	ToColor   string  `json:"toColor"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
}

// LinkElement is one drawable link
type LinkElement struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	X1       float64   `json:"x1"`
	Y1       float64   `json:"y1"`
	X2       float64   `json:"x2"`
	Y2       float64   `json:"y2"`
	Color    string    `json:"color"`
	Opacity  float64   `json:"opacity"`
	Gradient *Gradient `json:"gradient,omitempty"`
}

// Surface is the abstract rendering target. The reconciler guarantees that a
// key retained across reconciles only ever receives updates — an element's
// identity is never destroyed and recreated while its key persists.
type Surface interface {
	EnterNode(el NodeElement)
	UpdateNode(el NodeElement)
	RemoveNode(id string)

	EnterLink(el LinkElement)
	UpdateLink(el LinkElement)
	RemoveLink(id string)
}
