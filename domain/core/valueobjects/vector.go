package valueobjects

import (
	"math"

	pkgerrors "wikigraph-backend/pkg/errors"
)

// Vector is a value object representing a 2D position or velocity
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewVector creates a vector with validation
func NewVector(x, y float64) (Vector, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Vector{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Vector{X: x, Y: y}, nil
}

// Add returns the component-wise sum of two vectors
func (v Vector) Add(other Vector) Vector {
	return Vector{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns the component-wise difference of two vectors
func (v Vector) Sub(other Vector) Vector {
	return Vector{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale returns the vector multiplied by a scalar
func (v Vector) Scale(s float64) Vector {
	return Vector{X: v.X * s, Y: v.Y * s}
}

// Length returns the Euclidean norm
func (v Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo calculates the Euclidean distance to another vector
func (v Vector) DistanceTo(other Vector) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Equals checks if two vectors are equal within a small epsilon
func (v Vector) Equals(other Vector) bool {
	const epsilon = 1e-9
	return math.Abs(v.X-other.X) < epsilon && math.Abs(v.Y-other.Y) < epsilon
}

// Midpoint calculates the midpoint between two vectors
func (v Vector) Midpoint(other Vector) Vector {
	return Vector{X: (v.X + other.X) / 2, Y: (v.Y + other.Y) / 2}
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
