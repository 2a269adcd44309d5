// Package search defines the contract for web search providers.
//
// The fact engine retrieves text evidence through TextSearcher; the topic
// engine resolves illustrative images through ImageSearcher. Both are
// treated as possibly-slow network calls and are always invoked off the
// ingest path.
//
// Implementations must be safe for concurrent use.
package search

import "context"

// SafeSearch controls content filtering on search requests.
type SafeSearch string

const (
	SafeSearchOff      SafeSearch = "off"
	SafeSearchModerate SafeSearch = "moderate"
	SafeSearchStrict   SafeSearch = "strict"
)

// IsValid reports whether s is one of the recognized SafeSearch levels.
func (s SafeSearch) IsValid() bool {
	switch s {
	case SafeSearchOff, SafeSearchModerate, SafeSearchStrict:
		return true
	}
	return false
}

// Options carries per-request search parameters.
type Options struct {
	// MaxResults bounds the number of results returned. Zero means the
	// provider default.
	MaxResults int

	// SafeSearch is the content-filtering level. An empty value means the
	// provider default.
	SafeSearch SafeSearch

	// Region is a provider-specific locale code (e.g., "wt-wt" for
	// worldwide, "us-en"). Empty means worldwide.
	Region string
}

// TextResult is one text search hit.
type TextResult struct {
	Title   string
	Snippet string
	URL     string
}

// ImageResult is one image search hit.
type ImageResult struct {
	Title string

	// ImageURL is the direct URL of the image file.
	ImageURL string

	// SourceURL is the page the image was found on.
	SourceURL string
}

// TextSearcher performs web text searches.
type TextSearcher interface {
	SearchText(ctx context.Context, query string, opts Options) ([]TextResult, error)
}

// ImageSearcher performs web image searches.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, opts Options) ([]ImageResult, error)
}

// Provider bundles both search capabilities behind one backend.
type Provider interface {
	TextSearcher
	ImageSearcher
}
