package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wikigraph-backend/application/loaders"
	"wikigraph-backend/application/ports"
	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/domain/core/entities"
)

func newExplorerFixture(t *testing.T, links map[string][]string) (*aggregates.Graph, *fakeFetcher, *loaders.GraphUpdateBatcher, *EpochCounter, *TopicExplorer) {
	t.Helper()
	graph := aggregates.NewGraph(zap.NewNop())
	fetcher := newFakeFetcher(links)
	epoch := NewEpochCounter()
	batcher := loaders.NewGraphUpdateBatcher(graph, time.Hour, zap.NewNop())
	explorer := NewTopicExplorer(graph, fetcher, epoch, batcher, ExplorerConfig{MaxChildren: 5}, zap.NewNop())
	return graph, fetcher, batcher, epoch, explorer
}

func TestAddTopicInsertsRootAndQueuesChildren(t *testing.T) {
	graph, fetcher, batcher, _, explorer := newExplorerFixture(t, map[string][]string{
		"Go (programming language)": {"Google", "Compiler"},
	})
	fetcher.resolve["golang"] = "Go (programming language)"

	title, err := explorer.AddTopic(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "Go (programming language)", title)

	// The root lands immediately, the children wait in the batcher
	require.True(t, graph.HasNode(title))
	assert.Equal(t, 1, graph.Stats().NodeCount)

	meta, _ := graph.NodeMetadata(title)
	assert.True(t, meta.IsUserTyped)
	assert.False(t, meta.IsCurrentlyExploring, "exploring flag cleared after fetch")
	assert.Equal(t, entities.ColorRoleRoot, meta.ColorRole)
	assert.Equal(t, title, meta.OriginSeed)

	batcher.ForceFlush()
	assert.Equal(t, aggregates.Stats{NodeCount: 3, LinkCount: 2}, graph.Stats())

	link, ok := graph.LinkBetween(title, "Google")
	require.True(t, ok)
	assert.Equal(t, entities.LinkTypeAuto, link.Type)

	childMeta, _ := graph.NodeMetadata("Google")
	assert.True(t, childMeta.IsAutoDiscovered)
	assert.Equal(t, entities.ColorRoleChild, childMeta.ColorRole)
	assert.Equal(t, title, childMeta.OriginSeed)
	assert.Equal(t, 1, childMeta.OriginDepth)
}

func TestAddTopicBlankQueryRejected(t *testing.T) {
	_, _, _, _, explorer := newExplorerFixture(t, nil)
	_, err := explorer.AddTopic(context.Background(), "   ")
	require.Error(t, err)
}

func TestExpandTopicBothDirections(t *testing.T) {
	graph, fetcher, batcher, _, explorer := newExplorerFixture(t, map[string][]string{
		"Hub": {"Out1", "Out2"},
	})
	fetcher.backlinks["Hub"] = []ports.TopicLink{{Title: "In1"}}

	graph.AddNodes([]aggregates.NodeSpec{{ID: "Hub", Meta: &entities.MetadataPatch{
		OriginSeed:  entities.String("Hub"),
		OriginDepth: entities.Int(0),
	}}})

	queued, err := explorer.ExpandTopic(context.Background(), "Hub")
	require.NoError(t, err)
	assert.Equal(t, 3, queued)

	batcher.ForceFlush()
	assert.Equal(t, aggregates.Stats{NodeCount: 4, LinkCount: 3}, graph.Stats())

	out, ok := graph.LinkBetween("Hub", "Out1")
	require.True(t, ok)
	assert.Equal(t, entities.LinkTypeExpand, out.Type)
	assert.Equal(t, "Hub", out.Source)

	// Backlinks point toward the expanded node
	in, ok := graph.LinkBetween("In1", "Hub")
	require.True(t, ok)
	assert.Equal(t, entities.LinkTypeExpandBacklink, in.Type)
	assert.Equal(t, "In1", in.Source)

	meta, _ := graph.NodeMetadata("Hub")
	assert.True(t, meta.IsExpanded)
	assert.False(t, meta.IsCurrentlyExploring)

	childMeta, _ := graph.NodeMetadata("Out1")
	assert.Equal(t, 1, childMeta.OriginDepth, "depth grows away from the origin")
	assert.Equal(t, "Hub", childMeta.OriginSeed)
}

func TestExpandTopicUnknownNode(t *testing.T) {
	_, _, _, _, explorer := newExplorerFixture(t, nil)
	_, err := explorer.ExpandTopic(context.Background(), "Missing")
	require.Error(t, err)
}

func TestExplorerCapsDiscoveries(t *testing.T) {
	children := make([]string, 20)
	for i := range children {
		children[i] = string(rune('b' + i))
	}
	graph, _, batcher, _, explorer := newExplorerFixture(t, map[string][]string{"A": children})

	_, err := explorer.AddTopic(context.Background(), "A")
	require.NoError(t, err)
	batcher.ForceFlush()

	// Root plus the configured cap of five children
	assert.Equal(t, 6, graph.Stats().NodeCount)
}

func TestStaleTopicAddDiscardedByRestore(t *testing.T) {
	graph, fetcher, batcher, epoch, explorer := newExplorerFixture(t, map[string][]string{
		"A": {"B", "C"},
	})
	fetcher.started = make(chan string, 1)
	fetcher.released = make(chan struct{})

	history := NewHistoryManager(graph, epoch, batcher, nil, zap.NewNop())
	history.Push(nil) // empty baseline

	done := make(chan error, 1)
	go func() {
		_, err := explorer.AddTopic(context.Background(), "A")
		done <- err
	}()

	// The add is inside its fetch; restore to the empty baseline
	<-fetcher.started
	_, ok := history.Undo(nil)
	require.True(t, ok)

	close(fetcher.released)
	require.NoError(t, <-done)

	// The stale result is discarded wholesale and nothing is buffered
	assert.Equal(t, aggregates.Stats{}, graph.Stats(), "model matches the restored snapshot")
	pendingNodes, pendingLinks := batcher.Pending()
	assert.Zero(t, pendingNodes)
	assert.Zero(t, pendingLinks)
}

func TestStaleResolveSkipsRootInsert(t *testing.T) {
	graph, fetcher, batcher, epoch, explorer := newExplorerFixture(t, map[string][]string{
		"A": {"B"},
	})
	fetcher.resolveStarted = make(chan string, 1)
	fetcher.resolveReleased = make(chan struct{})

	history := NewHistoryManager(graph, epoch, batcher, nil, zap.NewNop())
	history.Push(nil) // empty baseline

	done := make(chan error, 1)
	go func() {
		_, err := explorer.AddTopic(context.Background(), "A")
		done <- err
	}()

	// The add is still resolving its title; restore to the empty baseline
	<-fetcher.resolveStarted
	_, ok := history.Undo(nil)
	require.True(t, ok)

	close(fetcher.resolveReleased)
	require.NoError(t, <-done)

	// Not even the root node may land after the restore
	assert.Equal(t, aggregates.Stats{}, graph.Stats(), "model matches the restored snapshot")
	pendingNodes, pendingLinks := batcher.Pending()
	assert.Zero(t, pendingNodes)
	assert.Zero(t, pendingLinks)
}
