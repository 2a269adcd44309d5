// Package ddg provides a search.Provider backed by DuckDuckGo.
//
// DuckDuckGo has no official API. Text searches go through the HTML
// endpoint (html.duckduckgo.com/html/) and are parsed with
// golang.org/x/net/html; image searches use the i.js JSON endpoint, which
// requires a vqd token scraped from the regular search page first.
//
// No API key is required. Callers should treat the provider as
// best-effort: endpoint markup can change, and such changes surface as
// parse faults rather than panics.
package ddg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/auricle-ai/auricle/pkg/fault"
	"github.com/auricle-ai/auricle/pkg/provider/search"
)

const (
	// DefaultHTMLBaseURL serves the text-search HTML endpoint.
	DefaultHTMLBaseURL = "https://html.duckduckgo.com"

	// DefaultAPIBaseURL serves the vqd token page and the i.js image API.
	DefaultAPIBaseURL = "https://duckduckgo.com"

	defaultTimeout = 15 * time.Second

	// Browser-like UA; the endpoints reject obvious bot agents.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Ensure Provider implements search.Provider at compile time.
var _ search.Provider = (*Provider)(nil)

// Provider implements search.Provider against DuckDuckGo endpoints.
type Provider struct {
	htmlBaseURL string
	apiBaseURL  string
	httpClient  *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithTimeout sets a per-request HTTP timeout. Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithBaseURLs overrides both endpoint bases. Intended for tests.
func WithBaseURLs(htmlBase, apiBase string) Option {
	return func(p *Provider) {
		if htmlBase != "" {
			p.htmlBaseURL = strings.TrimRight(htmlBase, "/")
		}
		if apiBase != "" {
			p.apiBaseURL = strings.TrimRight(apiBase, "/")
		}
	}
}

// New constructs a DuckDuckGo search Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		htmlBaseURL: DefaultHTMLBaseURL,
		apiBaseURL:  DefaultAPIBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SearchText implements search.TextSearcher via the HTML endpoint.
func (p *Provider) SearchText(ctx context.Context, query string, opts search.Options) ([]search.TextResult, error) {
	const op = "search.ddg.text"

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", region(opts))
	params.Set("kp", safeSearchParam(opts.SafeSearch))

	body, err := p.get(ctx, op, p.htmlBaseURL+"/html/?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	results, err := parseTextResults(body)
	if err != nil {
		return nil, fault.Wrap(fault.Parse, op, err)
	}
	return capText(results, opts.MaxResults), nil
}

// SearchImages implements search.ImageSearcher via the i.js JSON endpoint.
func (p *Provider) SearchImages(ctx context.Context, query string, opts search.Options) ([]search.ImageResult, error) {
	const op = "search.ddg.images"

	vqd, err := p.fetchVQD(ctx, query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("o", "json")
	params.Set("l", region(opts))
	params.Set("vqd", vqd)
	params.Set("p", safeSearchParam(opts.SafeSearch))

	body, err := p.get(ctx, op, p.apiBaseURL+"/i.js?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload struct {
		Results []struct {
			Title string `json:"title"`
			Image string `json:"image"`
			URL   string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fault.Wrap(fault.Parse, op, err)
	}

	results := make([]search.ImageResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.Image == "" {
			continue
		}
		results = append(results, search.ImageResult{
			Title:     r.Title,
			ImageURL:  r.Image,
			SourceURL: r.URL,
		})
	}
	return capImages(results, opts.MaxResults), nil
}

// fetchVQD scrapes the per-query token the image API requires.
func (p *Provider) fetchVQD(ctx context.Context, query string) (string, error) {
	const op = "search.ddg.vqd"

	params := url.Values{}
	params.Set("q", query)
	params.Set("iax", "images")
	params.Set("ia", "images")

	body, err := p.get(ctx, op, p.apiBaseURL+"/?"+params.Encode())
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return "", fault.Wrap(fault.Transport, op, err)
	}

	vqd := extractVQD(string(raw))
	if vqd == "" {
		return "", fault.New(fault.Parse, op, "vqd token not found in page")
	}
	return vqd, nil
}

// get issues a GET with browser headers and classifies HTTP failures.
// The caller owns the returned body.
func (p *Provider) get(ctx context.Context, op, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Transport, op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.Transport, op, err)
	}
	switch {
	case resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fault.New(fault.Auth, op, "status %d (likely rate limited or blocked)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fault.New(fault.Transport, op, "unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseTextResults extracts organic results from the HTML endpoint markup:
// each hit is a div with class "result", holding an <a class="result__a">
// title link and a snippet element with class "result__snippet".
func parseTextResults(r io.Reader) ([]search.TextResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []search.TextResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if res, ok := extractResult(n); ok {
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// extractResult pulls title, URL, and snippet out of one result div.
func extractResult(div *html.Node) (search.TextResult, bool) {
	var res search.TextResult

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				res.Title = strings.TrimSpace(textContent(n))
				res.URL = resolveRedirect(attr(n, "href"))
			case hasClass(n, "result__snippet"):
				res.Snippet = strings.TrimSpace(textContent(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(div)

	return res, res.URL != ""
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// extractVQD locates the vqd token in the search page source. The token
// appears as vqd="..." or vqd=...& depending on page version.
func extractVQD(page string) string {
	for _, marker := range []string{`vqd="`, `vqd='`, `"vqd":"`, `vqd=`} {
		idx := strings.Index(page, marker)
		if idx < 0 {
			continue
		}
		rest := page[idx+len(marker):]
		end := strings.IndexFunc(rest, func(r rune) bool {
			switch r {
			case '"', '\'', '&', '<', ' ':
				return true
			}
			return false
		})
		if end < 0 {
			end = len(rest)
		}
		if token := rest[:end]; token != "" {
			return token
		}
	}
	return ""
}

// region maps empty Options.Region to worldwide.
func region(opts search.Options) string {
	if opts.Region == "" {
		return "wt-wt"
	}
	return opts.Region
}

// safeSearchParam maps the SafeSearch level onto DuckDuckGo's kp values.
func safeSearchParam(s search.SafeSearch) string {
	switch s {
	case search.SafeSearchOff:
		return "-2"
	case search.SafeSearchModerate:
		return "-1"
	default:
		return "1"
	}
}

func capText(in []search.TextResult, max int) []search.TextResult {
	if max > 0 && len(in) > max {
		return in[:max]
	}
	return in
}

func capImages(in []search.ImageResult, max int) []search.ImageResult {
	if max > 0 && len(in) > max {
		return in[:max]
	}
	return in
}

// hasClass reports whether the node's class attribute contains name.
func hasClass(n *html.Node, name string) bool {
	for _, cls := range strings.Fields(attr(n, "class")) {
		if cls == name {
			return true
		}
	}
	return false
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates all text nodes under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// String summarises the provider configuration, for startup logging.
func (p *Provider) String() string {
	return fmt.Sprintf("ddg(html=%s, api=%s)", p.htmlBaseURL, p.apiBaseURL)
}
