package entities

// ColorRole marks whether a node seeds its own hue family or inherits one
type ColorRole string

const (
	ColorRoleRoot  ColorRole = "root"
	ColorRoleChild ColorRole = "child"
)

// Metadata is the per-node side record driving visual encoding and search
// state. One entry exists per node, created lazily with all flags false on
// first reference.
type Metadata struct {
	IsUserTyped          bool `json:"isUserTyped"`
	IsAutoDiscovered     bool `json:"isAutoDiscovered"`
	IsExpanded           bool `json:"isExpanded"`
	IsInPath             bool `json:"isInPath"`
	IsRecentlyAdded      bool `json:"isRecentlyAdded"`
	IsCurrentlyExploring bool `json:"isCurrentlyExploring"`
	IsSelected           bool `json:"isSelected"`
	IsPathEndpoint       bool `json:"isPathEndpoint"`
	IsBulkSelected       bool `json:"isBulkSelected"`
	IsDimmed             bool `json:"isDimmed"`
	IsDimmedByPath       bool `json:"isDimmedByPath"`
	IsFocusTarget        bool `json:"isFocusTarget"`
	IsFocusNeighbor      bool `json:"isFocusNeighbor"`

	Thumbnail   string    `json:"thumbnail,omitempty"`
	OriginSeed  string    `json:"originSeed,omitempty"`
	OriginDepth int       `json:"originDepth,omitempty"`
	ColorSeed   string    `json:"colorSeed,omitempty"`
	ColorRole   ColorRole `json:"colorRole,omitempty"`
}

// MetadataPatch is a partial metadata update. Nil fields leave the existing
// value untouched; the patch is shallow-merged over the current entry.
type MetadataPatch struct {
	IsUserTyped          *bool `json:"isUserTyped,omitempty"`
	IsAutoDiscovered     *bool `json:"isAutoDiscovered,omitempty"`
	IsExpanded           *bool `json:"isExpanded,omitempty"`
	IsInPath             *bool `json:"isInPath,omitempty"`
	IsRecentlyAdded      *bool `json:"isRecentlyAdded,omitempty"`
	IsCurrentlyExploring *bool `json:"isCurrentlyExploring,omitempty"`
	IsSelected           *bool `json:"isSelected,omitempty"`
	IsPathEndpoint       *bool `json:"isPathEndpoint,omitempty"`
	IsBulkSelected       *bool `json:"isBulkSelected,omitempty"`
	IsDimmed             *bool `json:"isDimmed,omitempty"`
	IsDimmedByPath       *bool `json:"isDimmedByPath,omitempty"`
	IsFocusTarget        *bool `json:"isFocusTarget,omitempty"`
	IsFocusNeighbor      *bool `json:"isFocusNeighbor,omitempty"`

	Thumbnail   *string    `json:"thumbnail,omitempty"`
	OriginSeed  *string    `json:"originSeed,omitempty"`
	OriginDepth *int       `json:"originDepth,omitempty"`
	ColorSeed   *string    `json:"colorSeed,omitempty"`
	ColorRole   *ColorRole `json:"colorRole,omitempty"`
}

// Apply shallow-merges the patch over the metadata entry
func (m *Metadata) Apply(patch *MetadataPatch) {
	if patch == nil {
		return
	}
	if patch.IsUserTyped != nil {
		m.IsUserTyped = *patch.IsUserTyped
	}
	if patch.IsAutoDiscovered != nil {
		m.IsAutoDiscovered = *patch.IsAutoDiscovered
	}
	if patch.IsExpanded != nil {
		m.IsExpanded = *patch.IsExpanded
	}
	if patch.IsInPath != nil {
		m.IsInPath = *patch.IsInPath
	}
	if patch.IsRecentlyAdded != nil {
		m.IsRecentlyAdded = *patch.IsRecentlyAdded
	}
	if patch.IsCurrentlyExploring != nil {
		m.IsCurrentlyExploring = *patch.IsCurrentlyExploring
	}
	if patch.IsSelected != nil {
		m.IsSelected = *patch.IsSelected
	}
	if patch.IsPathEndpoint != nil {
		m.IsPathEndpoint = *patch.IsPathEndpoint
	}
	if patch.IsBulkSelected != nil {
		m.IsBulkSelected = *patch.IsBulkSelected
	}
	if patch.IsDimmed != nil {
		m.IsDimmed = *patch.IsDimmed
	}
	if patch.IsDimmedByPath != nil {
		m.IsDimmedByPath = *patch.IsDimmedByPath
	}
	if patch.IsFocusTarget != nil {
		m.IsFocusTarget = *patch.IsFocusTarget
	}
	if patch.IsFocusNeighbor != nil {
		m.IsFocusNeighbor = *patch.IsFocusNeighbor
	}
	if patch.Thumbnail != nil {
		m.Thumbnail = *patch.Thumbnail
	}
	if patch.OriginSeed != nil {
		m.OriginSeed = *patch.OriginSeed
	}
	if patch.OriginDepth != nil {
		m.OriginDepth = *patch.OriginDepth
	}
	if patch.ColorSeed != nil {
		m.ColorSeed = *patch.ColorSeed
	}
	if patch.ColorRole != nil {
		m.ColorRole = *patch.ColorRole
	}
}

// Bool is a helper for building patches
func Bool(v bool) *bool { return &v }

// String is a helper for building patches
func String(v string) *string { return &v }

// Int is a helper for building patches
func Int(v int) *int { return &v }

// Role is a helper for building patches
func Role(v ColorRole) *ColorRole { return &v }
