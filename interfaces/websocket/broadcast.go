package websocket

import (
	"go.uber.org/zap"

	"wikigraph-backend/application/services"
	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/interfaces/render"
)

// WebSurface is the production rendering surface: every element transition
// from the reconciler is pushed to connected viewers as a typed delta. The
// reconciler's identity guarantee carries over the wire — a retained key
// only ever sees update messages.
type WebSurface struct {
	hub    *Hub
	logger *zap.Logger
}

var _ render.Surface = (*WebSurface)(nil)

// NewWebSurface creates a surface broadcasting through the hub
func NewWebSurface(hub *Hub, logger *zap.Logger) *WebSurface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSurface{hub: hub, logger: logger}
}

func (s *WebSurface) EnterNode(el render.NodeElement) {
	s.push(MessageNodeEnter, el)
}

func (s *WebSurface) UpdateNode(el render.NodeElement) {
	s.push(MessageNodeUpdate, el)
}

func (s *WebSurface) RemoveNode(id string) {
	s.push(MessageNodeRemove, map[string]string{"id": id})
}

func (s *WebSurface) EnterLink(el render.LinkElement) {
	s.push(MessageLinkEnter, el)
}

func (s *WebSurface) UpdateLink(el render.LinkElement) {
	s.push(MessageLinkUpdate, el)
}

func (s *WebSurface) RemoveLink(id string) {
	s.push(MessageLinkRemove, map[string]string{"id": id})
}

// PushStats broadcasts the current node/link counts
func (s *WebSurface) PushStats(stats aggregates.Stats) {
	s.push(MessageStats, stats)
}

// PushSearchProgress broadcasts a search progress update
func (s *WebSurface) PushSearchProgress(progress services.SearchProgress) {
	s.push(MessageSearchProgress, progress)
}

// PushPathFound broadcasts a discovered path
func (s *WebSurface) PushPathFound(path []string) {
	s.push(MessagePathFound, map[string][]string{"path": path})
}

func (s *WebSurface) push(messageType string, data any) {
	if err := s.hub.Broadcast(messageType, data); err != nil {
		s.logger.Debug("Broadcast dropped",
			zap.String("type", messageType),
			zap.Error(err),
		)
	}
}
