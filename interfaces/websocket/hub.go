// Package websocket pushes graph state to connected viewers: element
// deltas from the render reconciler, stats, and search progress.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgerrors "wikigraph-backend/pkg/errors"
)

// Message types pushed to viewers
const (
	MessageNodeEnter      = "NODE_ENTER"
	MessageNodeUpdate     = "NODE_UPDATE"
	MessageNodeRemove     = "NODE_REMOVE"
	MessageLinkEnter      = "LINK_ENTER"
	MessageLinkUpdate     = "LINK_UPDATE"
	MessageLinkRemove     = "LINK_REMOVE"
	MessageStats          = "GRAPH_STATS"
	MessageSearchProgress = "SEARCH_PROGRESS"
	MessagePathFound      = "PATH_FOUND"
	MessageFrame          = "FRAME"
)

// Envelope is the wire format for every pushed message
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Hub maintains the set of connected viewers and fans broadcasts out to all
// of them. Viewers are anonymous; every connection sees the same graph.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	metrics HubMetrics
}

// HubMetrics tracks connection and delivery counts
type HubMetrics struct {
	mu                sync.RWMutex
	ActiveConnections int64
	MessagesSent      int64
	MessagesFailed    int64
}

// NewHub creates a hub; call Run to start its event loop
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 1024),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Run drives registration, unregistration and broadcast until Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.mu.Lock()
			h.metrics.ActiveConnections++
			h.metrics.mu.Unlock()
			h.logger.Info("Viewer connected", zap.String("connectionID", client.id))

		case client := <-h.unregister:
			// A slow client can be pushed onto unregister more than once;
			// only the first removal counts
			h.mu.Lock()
			removed := h.clients[client]
			if removed {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if removed {
				h.metrics.mu.Lock()
				h.metrics.ActiveConnections--
				h.metrics.mu.Unlock()
				h.logger.Info("Viewer disconnected", zap.String("connectionID", client.id))
			}

		case payload := <-h.broadcast:
			h.fanOut(payload)
		}
	}
}

// Stop shuts the hub down and closes every connection
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast pushes a typed message to every connected viewer. Payloads that
// fail to marshal are an error; a full broadcast queue drops the message.
func (h *Hub) Broadcast(messageType string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return pkgerrors.Wrap(err, "marshaling broadcast payload")
	}
	envelope, err := json.Marshal(Envelope{
		Type:      messageType,
		Data:      body,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "marshaling broadcast envelope")
	}

	select {
	case h.broadcast <- envelope:
		return nil
	default:
		h.logger.Warn("Broadcast queue full, dropping message",
			zap.String("type", messageType),
		)
		return pkgerrors.NewInternalError("broadcast queue full", nil)
	}
}

// ConnectionCount returns the number of connected viewers
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Metrics returns a copy of the delivery counters
func (h *Hub) Metrics() (active, sent, failed int64) {
	h.metrics.mu.RLock()
	defer h.metrics.mu.RUnlock()
	return h.metrics.ActiveConnections, h.metrics.MessagesSent, h.metrics.MessagesFailed
}

// fanOut delivers one payload to every client, disconnecting viewers whose
// send queue is full rather than blocking the hub
func (h *Hub) fanOut(payload []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- payload:
			h.metrics.mu.Lock()
			h.metrics.MessagesSent++
			h.metrics.mu.Unlock()
		default:
			h.metrics.mu.Lock()
			h.metrics.MessagesFailed++
			h.metrics.mu.Unlock()
			h.logger.Warn("Disconnecting slow viewer", zap.String("connectionID", client.id))
			go func(c *Client) {
				h.unregister <- c
				c.conn.Close()
			}(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, client)
	}
	h.logger.Info("All viewer connections closed")
}
