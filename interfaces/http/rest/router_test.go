package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wikigraph-backend/application/loaders"
	"wikigraph-backend/application/ports"
	"wikigraph-backend/application/services"
	"wikigraph-backend/domain/core/aggregates"
	"wikigraph-backend/interfaces/http/rest"
	"wikigraph-backend/interfaces/http/rest/handlers"
)

type stubFetcher struct {
	links map[string][]string
}

func (f *stubFetcher) ResolveTitle(_ context.Context, query string) (string, error) {
	return query, nil
}

func (f *stubFetcher) FetchLinks(_ context.Context, title string) ([]ports.TopicLink, error) {
	out := make([]ports.TopicLink, 0, len(f.links[title]))
	for _, target := range f.links[title] {
		out = append(out, ports.TopicLink{Title: target})
	}
	return out, nil
}

func (f *stubFetcher) FetchBacklinks(_ context.Context, _ string) ([]ports.TopicLink, error) {
	return nil, nil
}

func (f *stubFetcher) FetchSummary(_ context.Context, _ string) (ports.TopicSummary, error) {
	return ports.TopicSummary{}, nil
}

func (f *stubFetcher) CachedLinks(_ string) ([]ports.TopicLink, bool) {
	return nil, false
}

type apiFixture struct {
	server  *httptest.Server
	graph   *aggregates.Graph
	batcher *loaders.GraphUpdateBatcher
}

func newAPIFixture(t *testing.T, links map[string][]string) *apiFixture {
	t.Helper()
	logger := zap.NewNop()

	graph := aggregates.NewGraph(logger)
	epoch := services.NewEpochCounter()
	batcher := loaders.NewGraphUpdateBatcher(graph, time.Hour, logger)
	fetcher := &stubFetcher{links: links}

	explorer := services.NewTopicExplorer(graph, fetcher, epoch, batcher, services.ExplorerConfig{}, logger)
	pathfinder := services.NewPathfinder(graph, fetcher, epoch, services.SearchConfig{MaxDepth: 4, MaxVisited: 100}, logger)
	history := services.NewHistoryManager(graph, epoch, batcher, pathfinder, logger)

	router := rest.Setup(rest.Dependencies{
		Graph:   handlers.NewGraphHandler(graph, history, logger),
		Topics:  handlers.NewTopicHandler(explorer, history, nil, logger),
		Search:  handlers.NewSearchHandler(pathfinder, nil, logger),
		History: handlers.NewHistoryHandler(history, nil, logger),
		Logger:  logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &apiFixture{server: server, graph: graph, batcher: batcher}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestAddTopicEndpoint(t *testing.T) {
	f := newAPIFixture(t, map[string][]string{
		"Go": {"Concurrency", "Compiler"},
	})

	resp := f.do(t, http.MethodPost, "/api/v1/topics", map[string]string{"query": "Go"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		ID string `json:"id"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "Go", body.ID)
	assert.True(t, f.graph.HasNode("Go"))

	f.batcher.ForceFlush()
	assert.True(t, f.graph.HasNode("Concurrency"))
	assert.True(t, f.graph.HasNode("Compiler"))
}

func TestAddTopicRejectsMissingQuery(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/topics", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteNodeAndUndo(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.graph.AddNodes([]aggregates.NodeSpec{{ID: "Alpha"}, {ID: "Beta"}})

	resp := f.do(t, http.MethodDelete, "/api/v1/nodes/Alpha", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, f.graph.HasNode("Alpha"))

	resp = f.do(t, http.MethodPost, "/api/v1/history/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var step struct {
		Applied bool `json:"applied"`
	}
	decode(t, resp, &step)
	assert.True(t, step.Applied)
	assert.True(t, f.graph.HasNode("Alpha"))
}

func TestDeleteUnknownNodeIsNotFound(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodDelete, "/api/v1/nodes/Nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchMetadataEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.graph.AddNodes([]aggregates.NodeSpec{{ID: "Alpha"}})

	resp := f.do(t, http.MethodPatch, "/api/v1/nodes/Alpha/metadata", map[string]bool{"isSelected": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	meta, ok := f.graph.NodeMetadata("Alpha")
	require.True(t, ok)
	assert.True(t, meta.IsSelected)
}

func TestPruneEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.graph.AddNodes([]aggregates.NodeSpec{{ID: "Lonely"}})

	resp := f.do(t, http.MethodPost, "/api/v1/nodes/prune", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Removed int `json:"removed"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 1, body.Removed)
	assert.False(t, f.graph.HasNode("Lonely"))
}

func TestSearchEndpointFindsPath(t *testing.T) {
	f := newAPIFixture(t, map[string][]string{
		"Alpha":  {"Middle"},
		"Middle": {"Omega"},
	})

	resp := f.do(t, http.MethodPost, "/api/v1/search", map[string]string{"start": "Alpha", "goal": "Omega"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		status := f.do(t, http.MethodGet, "/api/v1/search", nil)
		var body struct {
			State  string `json:"state"`
			Result *struct {
				Outcome string   `json:"outcome"`
				Path    []string `json:"path"`
			} `json:"result"`
		}
		decode(t, status, &body)
		return body.State == "idle" && body.Result != nil && body.Result.Outcome == "found"
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, f.graph.HasNode("Middle"))
}

func TestSearchRejectsBlankEndpoints(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/search", map[string]string{"start": "Alpha"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryStatusEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		CanUndo bool `json:"canUndo"`
		CanRedo bool `json:"canRedo"`
	}
	decode(t, resp, &body)
	assert.False(t, body.CanUndo)
	assert.False(t, body.CanRedo)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
