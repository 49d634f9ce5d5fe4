package acl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "wikigraph-backend/pkg/errors"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*WikipediaAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := NewWikipediaAdapter(WikipediaConfig{
		APIEndpoint: server.URL + "/w/api.php",
		RESTBase:    server.URL + "/api/rest_v1",
		CacheTTL:    time.Minute,
		MaxLinks:    10,
	}, zap.NewNop())
	return adapter, server
}

func TestResolveTitle(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("srsearch"))
		w.Write([]byte(`{"query":{"search":[{"title":"Go (programming language)"}]}}`))
	})

	title, err := adapter.ResolveTitle(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "Go (programming language)", title)
}

func TestResolveTitleNoMatch(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"search":[]}}`))
	})

	_, err := adapter.ResolveTitle(context.Background(), "zzzz")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestFetchLinksParsesAndCaches(t *testing.T) {
	var hits int
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "Go (programming language)", r.URL.Query().Get("titles"))
		assert.Equal(t, "0", r.URL.Query().Get("plnamespace"))
		w.Write([]byte(`{"query":{"pages":{"12345":{"links":[{"title":"Google"},{"title":"Compiler"}]}}}}`))
	})

	links, err := adapter.FetchLinks(context.Background(), "Go (programming language)")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Google", links[0].Title)

	// The fetch populated the cache; a cache read costs no request
	cached, ok := adapter.CachedLinks("Go (programming language)")
	require.True(t, ok)
	assert.Len(t, cached, 2)
	assert.Equal(t, 1, hits)

	adapter.InvalidateCache()
	_, ok = adapter.CachedLinks("Go (programming language)")
	assert.False(t, ok)
}

func TestCachedLinksExpire(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{"1":{"links":[{"title":"X"}]}}}}`))
	})
	adapter.config.CacheTTL = time.Millisecond

	_, err := adapter.FetchLinks(context.Background(), "T")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, ok := adapter.CachedLinks("T")
	assert.False(t, ok, "expired entries are not served")
}

func TestFetchLinksCapped(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{"1":{"links":[
			{"title":"A"},{"title":"B"},{"title":"C"},{"title":"D"}
		]}}}}`))
	})
	adapter.config.MaxLinks = 2

	links, err := adapter.FetchLinks(context.Background(), "T")
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestFetchBacklinks(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "backlinks", r.URL.Query().Get("list"))
		assert.Equal(t, "Go (programming language)", r.URL.Query().Get("bltitle"))
		w.Write([]byte(`{"query":{"backlinks":[{"title":"Kubernetes"},{"title":"Docker (software)"}]}}`))
	})

	links, err := adapter.FetchBacklinks(context.Background(), "Go (programming language)")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Kubernetes", links[0].Title)
}

func TestFetchSummary(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/rest_v1/page/summary/")
		w.Write([]byte(`{"title":"Go (programming language)","extract":"Go is a programming language.","thumbnail":{"source":"https://img.example/go.png"}}`))
	})

	summary, err := adapter.FetchSummary(context.Background(), "Go (programming language)")
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", summary.Extract)
	assert.Equal(t, "https://img.example/go.png", summary.Thumbnail)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	adapter.config.MaxLinks = 10

	// Drive the breaker past its failure window
	for i := 0; i < 10; i++ {
		_, err := adapter.FetchLinks(context.Background(), "T")
		require.Error(t, err)
	}

	// Once open, requests fail fast without reaching the server
	_, err := adapter.FetchLinks(context.Background(), "T")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInternal(err))
}
