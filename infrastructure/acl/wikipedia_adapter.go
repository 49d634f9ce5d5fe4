// Package acl holds anti-corruption adapters translating external content
// APIs into the domain's ports.
package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"wikigraph-backend/application/ports"
	pkgerrors "wikigraph-backend/pkg/errors"
)

// WikipediaConfig holds the adapter's tunables
type WikipediaConfig struct {
	APIEndpoint string        // MediaWiki action API, e.g. https://en.wikipedia.org/w/api.php
	RESTBase    string        // REST summary API base, e.g. https://en.wikipedia.org/api/rest_v1
	UserAgent   string
	Timeout     time.Duration
	CacheTTL    time.Duration
	MaxLinks    int

	// Circuit breaker tunables, evaluated per request window
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerMinRequests      uint32
	BreakerFailureThreshold float64
}

// DefaultWikipediaConfig returns production defaults against English Wikipedia
func DefaultWikipediaConfig() WikipediaConfig {
	return WikipediaConfig{
		APIEndpoint: "https://en.wikipedia.org/w/api.php",
		RESTBase:    "https://en.wikipedia.org/api/rest_v1",
		UserAgent:   "wikigraph-backend/1.0",
		Timeout:     10 * time.Second,
		CacheTTL:    15 * time.Minute,
		MaxLinks:    50,

		BreakerMaxRequests:      5,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          60 * time.Second,
		BreakerMinRequests:      5,
		BreakerFailureThreshold: 0.8,
	}
}

// cacheEntry is one TTL-bounded cached link list
type cacheEntry struct {
	links   []ports.TopicLink
	expires time.Time
}

// WikipediaAdapter implements ports.ContentFetcher over the MediaWiki action
// API and the REST summary API. All outbound calls go through a circuit
// breaker; link lists are cached with a TTL so repeated expansions and BFS
// revisits stay off the network. The cache is owned by the adapter instance,
// never shared ambient state.
type WikipediaAdapter struct {
	config  WikipediaConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

var _ ports.ContentFetcher = (*WikipediaAdapter)(nil)

// NewWikipediaAdapter creates an adapter with its own HTTP client and breaker
func NewWikipediaAdapter(config WikipediaConfig, logger *zap.Logger) *WikipediaAdapter {
	defaults := DefaultWikipediaConfig()
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaults.APIEndpoint
	}
	if config.RESTBase == "" {
		config.RESTBase = defaults.RESTBase
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.MaxLinks <= 0 {
		config.MaxLinks = defaults.MaxLinks
	}
	if config.BreakerMaxRequests == 0 {
		config.BreakerMaxRequests = defaults.BreakerMaxRequests
	}
	if config.BreakerInterval <= 0 {
		config.BreakerInterval = defaults.BreakerInterval
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = defaults.BreakerTimeout
	}
	if config.BreakerMinRequests == 0 {
		config.BreakerMinRequests = defaults.BreakerMinRequests
	}
	if config.BreakerFailureThreshold <= 0 {
		config.BreakerFailureThreshold = defaults.BreakerFailureThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := &WikipediaAdapter{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
		cache:  make(map[string]cacheEntry),
	}
	adapter.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wikipedia-api",
		MaxRequests: config.BreakerMaxRequests,
		Interval:    config.BreakerInterval,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return adapter
}

// searchResponse is the action API's list=search envelope
type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// ResolveTitle resolves a free-form query to the canonical article title via
// full-text search, taking the top hit
func (a *WikipediaAdapter) ResolveTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
		"format":   {"json"},
	}
	body, err := a.get(ctx, a.config.APIEndpoint+"?"+params.Encode())
	if err != nil {
		return "", err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", pkgerrors.Wrap(err, "decoding search response")
	}
	if len(parsed.Query.Search) == 0 {
		return "", pkgerrors.NewNotFoundError("no article matches: " + query)
	}
	return parsed.Query.Search[0].Title, nil
}

// linksResponse is the action API's prop=links / list=backlinks envelope
type linksResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages map[string]struct {
			Links []struct {
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
		Backlinks []struct {
			Title string `json:"title"`
		} `json:"backlinks"`
	} `json:"query"`
}

// FetchLinks returns the article's outgoing main-namespace links, capped at
// the configured maximum, and refreshes the cache entry
func (a *WikipediaAdapter) FetchLinks(ctx context.Context, title string) ([]ports.TopicLink, error) {
	params := url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"links"},
		"plnamespace": {"0"},
		"pllimit":     {fmt.Sprintf("%d", a.config.MaxLinks)},
		"format":      {"json"},
	}
	body, err := a.get(ctx, a.config.APIEndpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed linksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pkgerrors.Wrap(err, "decoding links response")
	}

	var links []ports.TopicLink
	for _, page := range parsed.Query.Pages {
		for _, link := range page.Links {
			links = append(links, ports.TopicLink{Title: link.Title})
			if len(links) >= a.config.MaxLinks {
				break
			}
		}
	}

	a.storeCache(title, links)
	a.logger.Debug("Fetched links",
		zap.String("title", title),
		zap.Int("count", len(links)),
	)
	return links, nil
}

// FetchBacklinks returns main-namespace articles linking to the given one
func (a *WikipediaAdapter) FetchBacklinks(ctx context.Context, title string) ([]ports.TopicLink, error) {
	params := url.Values{
		"action":      {"query"},
		"list":        {"backlinks"},
		"bltitle":     {title},
		"blnamespace": {"0"},
		"bllimit":     {fmt.Sprintf("%d", a.config.MaxLinks)},
		"format":      {"json"},
	}
	body, err := a.get(ctx, a.config.APIEndpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed linksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pkgerrors.Wrap(err, "decoding backlinks response")
	}

	links := make([]ports.TopicLink, 0, len(parsed.Query.Backlinks))
	for _, backlink := range parsed.Query.Backlinks {
		links = append(links, ports.TopicLink{Title: backlink.Title})
		if len(links) >= a.config.MaxLinks {
			break
		}
	}
	return links, nil
}

// summaryResponse is the REST summary envelope
type summaryResponse struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// FetchSummary returns the article's lead extract and thumbnail URL
func (a *WikipediaAdapter) FetchSummary(ctx context.Context, title string) (ports.TopicSummary, error) {
	endpoint := a.config.RESTBase + "/page/summary/" + url.PathEscape(title)
	body, err := a.get(ctx, endpoint)
	if err != nil {
		return ports.TopicSummary{}, err
	}

	var parsed summaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ports.TopicSummary{}, pkgerrors.Wrap(err, "decoding summary response")
	}
	return ports.TopicSummary{
		Title:     parsed.Title,
		Extract:   parsed.Extract,
		Thumbnail: parsed.Thumbnail.Source,
	}, nil
}

// CachedLinks returns a live cache entry without touching the network
func (a *WikipediaAdapter) CachedLinks(title string) ([]ports.TopicLink, bool) {
	a.mu.RLock()
	entry, ok := a.cache[title]
	a.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.links, true
}

// InvalidateCache drops every cached link list
func (a *WikipediaAdapter) InvalidateCache() {
	a.mu.Lock()
	a.cache = make(map[string]cacheEntry)
	a.mu.Unlock()
}

func (a *WikipediaAdapter) storeCache(title string, links []ports.TopicLink) {
	a.mu.Lock()
	a.cache[title] = cacheEntry{
		links:   links,
		expires: time.Now().Add(a.config.CacheTTL),
	}
	a.mu.Unlock()
}

// get performs one breaker-guarded HTTP GET and returns the response body
func (a *WikipediaAdapter) get(ctx context.Context, endpoint string) ([]byte, error) {
	result, err := a.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", a.config.UserAgent)

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.NewInternalError("content API temporarily unavailable", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, pkgerrors.NewInternalError("content API request failed", err)
	}
	return result.([]byte), nil
}
