package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
)

type spyInvalidatable struct{ cleared int }

func (s *spyInvalidatable) Clear() { s.cleared++ }

type spyAbortable struct{ aborted int }

func (s *spyAbortable) Abort() { s.aborted++ }

func newHistoryFixture(t *testing.T) (*aggregates.Graph, *EpochCounter, *spyInvalidatable, *spyAbortable, *HistoryManager) {
	t.Helper()
	graph := aggregates.NewGraph(zap.NewNop())
	epoch := NewEpochCounter()
	batcher := &spyInvalidatable{}
	search := &spyAbortable{}
	history := NewHistoryManager(graph, epoch, batcher, search, zap.NewNop())
	return graph, epoch, batcher, search, history
}

func TestUndoRedoRoundTrip(t *testing.T) {
	graph, _, _, _, history := newHistoryFixture(t)

	graph.AddNodes([]aggregates.NodeSpec{{ID: "A"}})
	history.Push([]string{"A"})

	graph.AddNodes([]aggregates.NodeSpec{{ID: "B"}})
	graph.AddLinks([]entities.Link{{Source: "A", Target: "B"}})

	selection, ok := history.Undo([]string{"B"})
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, selection)
	assert.Equal(t, aggregates.Stats{NodeCount: 1, LinkCount: 0}, graph.Stats())

	selection, ok = history.Redo([]string{"A"})
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, selection)
	assert.Equal(t, aggregates.Stats{NodeCount: 2, LinkCount: 1}, graph.Stats())
	assert.True(t, graph.HasNode("B"))
}

func TestUndoOnEmptyStackIsNoop(t *testing.T) {
	graph, epoch, batcher, search, history := newHistoryFixture(t)
	graph.AddNodes([]aggregates.NodeSpec{{ID: "A"}})

	_, ok := history.Undo(nil)
	assert.False(t, ok)
	_, ok = history.Redo(nil)
	assert.False(t, ok)

	// A refused restore touches nothing
	assert.Equal(t, 1, graph.Stats().NodeCount)
	assert.Equal(t, uint64(0), epoch.Current())
	assert.Zero(t, batcher.cleared)
	assert.Zero(t, search.aborted)
}

func TestPushClearsRedoStack(t *testing.T) {
	graph, _, _, _, history := newHistoryFixture(t)

	history.Push(nil)
	graph.AddNodes([]aggregates.NodeSpec{{ID: "A"}})
	_, ok := history.Undo(nil)
	require.True(t, ok)
	require.True(t, history.CanRedo())

	// A new mutation forks history; the redo branch is gone
	graph.AddNodes([]aggregates.NodeSpec{{ID: "C"}})
	history.Push(nil)
	assert.False(t, history.CanRedo())
}

func TestHistoryEvictsOldestAtLimit(t *testing.T) {
	_, _, _, _, history := newHistoryFixture(t)

	for i := 0; i <= DefaultHistoryLimit; i++ {
		history.Push(nil)
	}
	undoDepth, _ := history.Depths()
	assert.Equal(t, DefaultHistoryLimit, undoDepth)

	for i := 0; i < DefaultHistoryLimit; i++ {
		_, ok := history.Undo(nil)
		require.True(t, ok, "entry %d", i)
	}
	_, ok := history.Undo(nil)
	assert.False(t, ok, "the evicted entry must not be restorable")
}

func TestRestoreInvalidatesAsyncWork(t *testing.T) {
	graph, epoch, batcher, search, history := newHistoryFixture(t)

	history.Push(nil)
	graph.AddNodes([]aggregates.NodeSpec{{ID: "A"}})

	// An async mutation in flight captured the pre-restore epoch
	captured := epoch.Current()

	_, ok := history.Undo(nil)
	require.True(t, ok)

	assert.False(t, epoch.IsCurrent(captured), "restore must invalidate in-flight captures")
	assert.Equal(t, 1, batcher.cleared, "pending buffered work is discarded, not applied")
	assert.Equal(t, 1, search.aborted, "a running search is halted")
}

func TestRestoreDoesNotRecordItself(t *testing.T) {
	graph, _, _, _, history := newHistoryFixture(t)

	history.Push(nil)
	graph.AddNodes([]aggregates.NodeSpec{{ID: "A"}})

	// The host pushes on every reconcile; a restore-triggered reconcile
	// must be suppressed or undo would loop on itself
	graph.OnReconcile(func() { history.Push(nil) })

	_, ok := history.Undo(nil)
	require.True(t, ok)

	undoDepth, redoDepth := history.Depths()
	assert.Equal(t, 0, undoDepth)
	assert.Equal(t, 1, redoDepth)
}

func TestRestoreRebuildsMetadata(t *testing.T) {
	graph, _, _, _, history := newHistoryFixture(t)

	graph.AddNodes([]aggregates.NodeSpec{{ID: "A", Meta: &entities.MetadataPatch{
		IsUserTyped: entities.Bool(true),
		ColorSeed:   entities.String("A"),
	}}})
	history.Push(nil)

	graph.SetNodeMetadata("A", &entities.MetadataPatch{IsUserTyped: entities.Bool(false)})
	graph.AddNodes([]aggregates.NodeSpec{{ID: "B"}})

	_, ok := history.Undo(nil)
	require.True(t, ok)

	meta, found := graph.NodeMetadata("A")
	require.True(t, found)
	assert.True(t, meta.IsUserTyped)
	assert.Equal(t, "A", meta.ColorSeed)
	assert.False(t, graph.HasNode("B"))
}

func TestNilCollaboratorsAreTolerated(t *testing.T) {
	graph := aggregates.NewGraph(zap.NewNop())
	history := NewHistoryManager(graph, nil, nil, nil, nil)

	history.Push(nil)
	graph.AddNodes([]aggregates.NodeSpec{{ID: "A"}})

	_, ok := history.Undo(nil)
	require.True(t, ok)
	assert.Equal(t, 0, graph.Stats().NodeCount)
}
