package render

import (
	"fmt"
	"hash/fnv"

	"wikigraph-backend/domain/core/entities"
)

// Fixed palette. Seeded nodes get a deterministic hue family instead.
const (
	colorPath       = "#f59e0b"
	colorExploring  = "#22d3ee"
	colorEndpoint   = "#10b981"
	colorBulk       = "#a78bfa"
	colorUserTyped  = "#3b82f6"
	colorAuto       = "#94a3b8"
	colorDefault    = "#64748b"
	colorLink       = "#475569"
	colorLinkPath   = "#f59e0b"
	colorLinkManual = "#3b82f6"

	gradientFrom = "#10b981"
	gradientTo   = "#f59e0b"
)

// The four opacity tiers: undimmed, focus-dimmed, path-dimmed, and both
// combined multiplicatively.
const (
	opacityFull      = 1.0
	focusDimFactor   = 0.2
	pathDimFactor    = 0.3
	focusTargetScale = 1.4
)

// nodeColor resolves the visual encoding priority for a node, highest first
func nodeColor(meta entities.Metadata) string {
	switch {
	case meta.IsInPath:
		return colorPath
	case meta.IsCurrentlyExploring:
		return colorExploring
	case meta.IsPathEndpoint:
		return colorEndpoint
	case meta.IsBulkSelected:
		return colorBulk
	case meta.OriginSeed != "":
		return seededHue(meta.OriginSeed, meta.OriginDepth)
	case meta.IsUserTyped:
		return colorUserTyped
	case meta.IsAutoDiscovered && meta.ColorSeed != "":
		return seededHue(meta.ColorSeed, 0)
	case meta.IsAutoDiscovered:
		return colorAuto
	default:
		return colorDefault
	}
}

// seededHue hashes the seed into a stable hue and walks it by depth so each
// generation of a family shifts visibly but deterministically
func seededHue(seed string, depth int) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	hue := (int(h.Sum32()%360) + depth*25) % 360
	return fmt.Sprintf("hsl(%d, 70%%, 55%%)", hue)
}

// nodeOpacity combines the two independent dimming sources into one of four
// tiers. Each active source multiplies in; both together are dimmer than
// either alone.
func nodeOpacity(meta entities.Metadata) float64 {
	opacity := opacityFull
	if meta.IsDimmed {
		opacity *= focusDimFactor
	}
	if meta.IsDimmedByPath {
		opacity *= pathDimFactor
	}
	return opacity
}

// nodeScale grows the focus target; everything else renders at unit scale
func nodeScale(meta entities.Metadata) float64 {
	if meta.IsFocusTarget {
		return focusTargetScale
	}
	return 1.0
}

// nodeRadius scales with connectivity, capped so hubs stay readable
func nodeRadius(degree int) float64 {
	radius := 8 + float64(degree)*0.5
	if radius > 20 {
		radius = 20
	}
	return radius
}

// linkColor resolves the stroke for a link by its type
func linkColor(linkType entities.LinkType) string {
	switch linkType {
	case entities.LinkTypePath:
		return colorLinkPath
	case entities.LinkTypeManual:
		return colorLinkManual
	default:
		return colorLink
	}
}

// linkOpacity dims a link when either endpoint is dimmed, combining both
// dimming sources the same way nodes do
func linkOpacity(source, target entities.Metadata) float64 {
	opacity := opacityFull
	if source.IsDimmed || target.IsDimmed {
		opacity *= focusDimFactor
	}
	if source.IsDimmedByPath || target.IsDimmedByPath {
		opacity *= pathDimFactor
	}
	return opacity
}
