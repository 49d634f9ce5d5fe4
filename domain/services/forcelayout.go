package services

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
	"wikigraph-backend/domain/core/valueobjects"
)

// LayoutConfig holds the force simulation tunables
type LayoutConfig struct {
	LinkDistance      float64       // spring rest length
	SpringStrength    float64       // pull along links toward rest length
	ChargeStrength    float64       // pairwise repulsion constant
	CenterStrength    float64       // pull toward the viewport midpoint
	CollisionStrength float64       // push-apart factor on overlap
	SizeScale         float64       // scales per-node collision radii
	VelocityDecay     float64       // per-frame velocity damping
	AlphaDecay        float64       // per-frame heat decay
	AlphaMin          float64       // stop threshold
	FrameInterval     time.Duration // tick cadence
}

// DefaultLayoutConfig returns the standard simulation tuning
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		LinkDistance:      120,
		SpringStrength:    0.08,
		ChargeStrength:    900,
		CenterStrength:    0.02,
		CollisionStrength: 0.7,
		SizeScale:         1.0,
		VelocityDecay:     0.6,
		AlphaDecay:        0.0228,
		AlphaMin:          0.001,
		FrameInterval:     16 * time.Millisecond,
	}
}

// ForceLayout is the continuous physics simulation driving node positions.
// It holds a scalar heat (alpha) that decays toward zero; structural graph
// mutations reheat it through the graph's reheat callback, and frames only
// advance while alpha exceeds the stop threshold.
type ForceLayout struct {
	graph  *aggregates.Graph
	config LayoutConfig
	logger *zap.Logger

	mu     sync.Mutex
	alpha  float64
	center valueobjects.Vector
	onTick func()
}

// NewForceLayout creates a layout engine over the graph
func NewForceLayout(graph *aggregates.Graph, config LayoutConfig, logger *zap.Logger) *ForceLayout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForceLayout{
		graph:  graph,
		config: config,
		logger: logger,
	}
}

// OnTick registers the per-frame callback, invoked after each advanced frame
func (f *ForceLayout) OnTick(fn func()) {
	f.mu.Lock()
	f.onTick = fn
	f.mu.Unlock()
}

// Alpha returns the current simulation heat
func (f *ForceLayout) Alpha() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alpha
}

// Reheat raises the simulation heat to at least the given level
func (f *ForceLayout) Reheat(alpha float64) {
	f.mu.Lock()
	if alpha > f.alpha {
		f.alpha = alpha
	}
	f.mu.Unlock()
}

// Resize re-centers the centering force on the new viewport midpoint without
// resetting node positions, and reheats gently so the graph drifts over
func (f *ForceLayout) Resize(width, height float64) {
	f.mu.Lock()
	f.center = valueobjects.Vector{X: width / 2, Y: height / 2}
	f.mu.Unlock()

	f.graph.SetViewCenter(valueobjects.Vector{X: width / 2, Y: height / 2})
	f.Reheat(aggregates.ReheatResize)
}

// Run drives the simulation on a ticker until the context is cancelled. The
// loop keeps running independent of search or mutation state; only teardown
// stops it.
func (f *ForceLayout) Run(ctx context.Context) {
	ticker := time.NewTicker(f.config.FrameInterval)
	defer ticker.Stop()

	f.logger.Info("Layout engine started",
		zap.Duration("frameInterval", f.config.FrameInterval),
	)
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Layout engine stopped")
			return
		case <-ticker.C:
			f.Step()
		}
	}
}

// Step advances the simulation by one frame when it is still hot. It applies
// repulsion between all node pairs, springs along links, centering, and
// collision avoidance, then integrates velocities and decays alpha. The tick
// callback fires once per advanced frame.
func (f *ForceLayout) Step() {
	f.mu.Lock()
	if f.alpha < f.config.AlphaMin {
		f.mu.Unlock()
		return
	}
	alpha := f.alpha
	f.alpha = alpha * (1 - f.config.AlphaDecay)
	center := f.center
	tick := f.onTick
	f.mu.Unlock()

	cfg := f.config
	f.graph.ForEachFrame(func(nodes []*entities.Node, links []entities.Link, degree func(string) int) {
		index := make(map[string]*entities.Node, len(nodes))
		for _, node := range nodes {
			index[node.ID] = node
		}

		// Pairwise repulsion
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				delta := b.Position.Sub(a.Position)
				dist := delta.Length()
				if dist < 1e-6 {
					dist = 1e-6
					delta = valueobjects.Vector{X: 1e-6, Y: 0}
				}
				force := cfg.ChargeStrength / (dist * dist) * alpha
				push := delta.Scale(force / dist)
				a.Velocity = a.Velocity.Sub(push)
				b.Velocity = b.Velocity.Add(push)
			}
		}

		// Springs along links; endpoints are resolved to positions only here
		for _, link := range links {
			source, ok := index[link.Source]
			if !ok {
				continue
			}
			target, ok := index[link.Target]
			if !ok {
				continue
			}
			delta := target.Position.Sub(source.Position)
			dist := delta.Length()
			if dist < 1e-6 {
				continue
			}
			stretch := (dist - cfg.LinkDistance) / dist * cfg.SpringStrength * alpha
			pull := delta.Scale(stretch)
			source.Velocity = source.Velocity.Add(pull)
			target.Velocity = target.Velocity.Sub(pull)
		}

		// Centering
		for _, node := range nodes {
			toCenter := center.Sub(node.Position)
			node.Velocity = node.Velocity.Add(toCenter.Scale(cfg.CenterStrength * alpha))
		}

		// Collision avoidance with degree-scaled radii
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				minDist := f.collisionRadius(degree(a.ID)) + f.collisionRadius(degree(b.ID))
				delta := b.Position.Sub(a.Position)
				dist := delta.Length()
				if dist >= minDist || dist < 1e-6 {
					continue
				}
				overlap := (minDist - dist) / dist * cfg.CollisionStrength * alpha
				push := delta.Scale(overlap / 2)
				a.Velocity = a.Velocity.Sub(push)
				b.Velocity = b.Velocity.Add(push)
			}
		}

		// Integrate; pinned nodes stay put
		for _, node := range nodes {
			if node.Pinned != nil {
				node.Position = *node.Pinned
				node.Velocity = valueobjects.Vector{}
				continue
			}
			node.Velocity = node.Velocity.Scale(cfg.VelocityDecay)
			node.Position = node.Position.Add(node.Velocity)
		}
	})

	if tick != nil {
		tick()
	}
}

// collisionRadius is the per-node exclusion radius, scaled by degree
func (f *ForceLayout) collisionRadius(degree int) float64 {
	return math.Min(30+float64(degree)*0.5, 60)*f.config.SizeScale + 15
}
