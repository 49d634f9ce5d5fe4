package ports

import (
	"context"
)

// TopicLink is one outgoing hyperlink from an encyclopedia article
type TopicLink struct {
	Title   string
	Context string
}

// TopicSummary is the lead metadata of an article
type TopicSummary struct {
	Title     string
	Extract   string
	Thumbnail string
}

// ContentFetcher is the port to the encyclopedia content collaborator. It is
// the only source of graph edges. Implementations own their cache lifecycle;
// the engine never touches ambient global state.
type ContentFetcher interface {
	// ResolveTitle resolves a free-form query to the canonical article title
	ResolveTitle(ctx context.Context, query string) (string, error)

	// FetchLinks returns the ordered outgoing links of an article
	FetchLinks(ctx context.Context, title string) ([]TopicLink, error)

	// FetchBacklinks returns articles that link to the given article
	FetchBacklinks(ctx context.Context, title string) ([]TopicLink, error)

	// FetchSummary returns the article's lead extract and thumbnail
	FetchSummary(ctx context.Context, title string) (TopicSummary, error)

	// CachedLinks returns previously fetched links without network I/O
	CachedLinks(title string) ([]TopicLink, bool)
}
