package entities

import (
	"strings"

	pkgerrors "wikigraph-backend/pkg/errors"
)

// LinkType categorizes how a link entered the graph
type LinkType string

const (
	LinkTypeManual         LinkType = "manual"
	LinkTypeAuto           LinkType = "auto"
	LinkTypeExpand         LinkType = "expand"
	LinkTypeExpandBacklink LinkType = "expand_backlink"
	LinkTypeBacklink       LinkType = "backlink"
	LinkTypePath           LinkType = "path"
)

// IsValid reports whether the link type is one of the known kinds
func (t LinkType) IsValid() bool {
	switch t {
	case LinkTypeManual, LinkTypeAuto, LinkTypeExpand, LinkTypeExpandBacklink, LinkTypeBacklink, LinkTypePath:
		return true
	}
	return false
}

// Link is a hyperlink between two topics. Source and Target are always bare
// node ids at the model boundary; resolved node references never cross it.
type Link struct {
	ID      string   `json:"id"`
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Type    LinkType `json:"type"`
	Context string   `json:"context,omitempty"`
}

// DeriveLinkID builds the default id for a source/target pair
func DeriveLinkID(source, target string) string {
	return source + "-" + target
}

// NewLink creates a link between two existing topic ids
func NewLink(source, target string, linkType LinkType) (Link, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return Link{}, pkgerrors.NewValidationError("link endpoints cannot be empty")
	}
	if !linkType.IsValid() {
		return Link{}, pkgerrors.NewValidationError("unknown link type: " + string(linkType))
	}
	return Link{
		ID:     DeriveLinkID(source, target),
		Source: source,
		Target: target,
		Type:   linkType,
	}, nil
}

// Normalized returns the link with its id and type defaulted
func (l Link) Normalized() Link {
	if l.ID == "" {
		l.ID = DeriveLinkID(l.Source, l.Target)
	}
	if l.Type == "" {
		l.Type = LinkTypeAuto
	}
	return l
}

// Touches reports whether the link is incident to the given node id
func (l Link) Touches(nodeID string) bool {
	return l.Source == nodeID || l.Target == nodeID
}

// ConnectsPair reports whether the link joins the two ids in either direction
func (l Link) ConnectsPair(a, b string) bool {
	return (l.Source == a && l.Target == b) || (l.Source == b && l.Target == a)
}
