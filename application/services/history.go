package services

import (
	"sync"

	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
)

// DefaultHistoryLimit bounds each history stack; the oldest entry is evicted
// on overflow
const DefaultHistoryLimit = 30

// HistoryEntry is one undo/redo unit: a full graph snapshot plus the
// caller-tracked selection that went with it
type HistoryEntry struct {
	Snapshot  aggregates.Snapshot
	Selection []string
}

// Invalidatable is pending asynchronous work a restore must discard
type Invalidatable interface {
	Clear()
}

// Abortable is a running task a restore must halt
type Abortable interface {
	Abort()
}

// HistoryManager keeps bounded undo/redo stacks of graph snapshots. Every
// restore bumps the mutation epoch so in-flight asynchronous mutations
// started before it are discarded on completion, clears the batcher's
// pending buffer, and aborts any in-progress search.
type HistoryManager struct {
	graph   *aggregates.Graph
	epoch   *EpochCounter
	batcher Invalidatable
	search  Abortable
	limit   int
	logger  *zap.Logger

	mu        sync.Mutex
	undo      []HistoryEntry
	redo      []HistoryEntry
	restoring bool
}

// NewHistoryManager creates a manager over the graph and its collaborators.
// The batcher and search may be nil when not wired.
func NewHistoryManager(
	graph *aggregates.Graph,
	epoch *EpochCounter,
	batcher Invalidatable,
	search Abortable,
	logger *zap.Logger,
) *HistoryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryManager{
		graph:   graph,
		epoch:   epoch,
		batcher: batcher,
		search:  search,
		limit:   DefaultHistoryLimit,
		logger:  logger,
	}
}

// SetLimit adjusts the per-stack bound. Values below one are ignored.
func (h *HistoryManager) SetLimit(limit int) {
	h.mu.Lock()
	if limit > 0 {
		h.limit = limit
	}
	h.mu.Unlock()
}

// Push captures the current graph state onto the undo stack and clears the
// redo stack. Capture is suppressed while a restore is in progress, so a
// restore never generates its own history entry.
func (h *HistoryManager) Push(selection []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.restoring {
		return
	}

	entry := HistoryEntry{
		Snapshot:  h.graph.Snapshot(),
		Selection: append([]string(nil), selection...),
	}
	if len(h.undo) >= h.limit {
		h.undo = append(h.undo[:0], h.undo[1:]...)
	}
	h.undo = append(h.undo, entry)
	h.redo = nil
}

// Undo restores the most recent undo entry, pushing the pre-restore state
// onto the redo stack. Returns the restored selection and whether anything
// was applied; an empty stack is a no-op, not an error.
func (h *HistoryManager) Undo(currentSelection []string) ([]string, bool) {
	h.mu.Lock()
	if len(h.undo) == 0 {
		h.mu.Unlock()
		return nil, false
	}
	entry := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, HistoryEntry{
		Snapshot:  h.graph.Snapshot(),
		Selection: append([]string(nil), currentSelection...),
	})
	h.mu.Unlock()

	h.restore(entry)
	return entry.Selection, true
}

// Redo restores the most recent redo entry, pushing the pre-restore state
// back onto the undo stack
func (h *HistoryManager) Redo(currentSelection []string) ([]string, bool) {
	h.mu.Lock()
	if len(h.redo) == 0 {
		h.mu.Unlock()
		return nil, false
	}
	entry := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, HistoryEntry{
		Snapshot:  h.graph.Snapshot(),
		Selection: append([]string(nil), currentSelection...),
	})
	h.mu.Unlock()

	h.restore(entry)
	return entry.Selection, true
}

// CanUndo reports whether an undo entry is available
func (h *HistoryManager) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether a redo entry is available
func (h *HistoryManager) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Depths returns the current undo and redo stack depths
func (h *HistoryManager) Depths() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

// restore applies a history entry: invalidate in-flight async mutations,
// drop buffered work without applying it, halt the search, then rebuild the
// graph wholesale
func (h *HistoryManager) restore(entry HistoryEntry) {
	h.mu.Lock()
	h.restoring = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.restoring = false
		h.mu.Unlock()
	}()

	if h.epoch != nil {
		h.epoch.Bump()
	}
	if h.batcher != nil {
		h.batcher.Clear()
	}
	if h.search != nil {
		h.search.Abort()
	}
	h.graph.RestoreSnapshot(entry.Snapshot)

	h.logger.Debug("History restored",
		zap.Int("nodes", len(entry.Snapshot.Nodes)),
		zap.Int("links", len(entry.Snapshot.Links)),
	)
}
