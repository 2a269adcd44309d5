package ddg

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/auricle-ai/auricle/pkg/fault"
	"github.com/auricle-ai/auricle/pkg/provider/search"
)

const textPage = `<html><body>
<div id="links">
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a class="result__a" href="/l/?uddg=https%3A%2F%2Fexample.org%2Fmoon">Moon landing - Example</a>
    </h2>
    <a class="result__snippet" href="/l/?uddg=https%3A%2F%2Fexample.org%2Fmoon">Apollo 11 landed on the Moon in <b>1969</b>.</a>
  </div>
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a class="result__a" href="https://example.com/water">Boiling point of water</a>
    </h2>
    <div class="result__snippet">Water boils at 100 degrees Celsius at sea level.</div>
  </div>
  <div class="result result--ad">
    <a class="result__a" href="https://ads.example.net/buy">Sponsored</a>
  </div>
</div>
</body></html>`

func newTextServer(t *testing.T, gotQuery *url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/html") {
			http.NotFound(w, r)
			return
		}
		if gotQuery != nil {
			*gotQuery = r.URL.Query()
		}
		fmt.Fprint(w, textPage)
	}))
}

func TestSearchText(t *testing.T) {
	t.Parallel()

	var query url.Values
	srv := newTextServer(t, &query)
	defer srv.Close()

	p := New(WithBaseURLs(srv.URL, srv.URL))
	results, err := p.SearchText(context.Background(), "moon landing year", search.Options{
		MaxResults: 5,
		SafeSearch: search.SafeSearchStrict,
		Region:     "wt-wt",
	})
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].URL != "https://example.org/moon" {
		t.Errorf("redirect not unwrapped: URL = %q", results[0].URL)
	}
	if results[0].Title != "Moon landing - Example" {
		t.Errorf("Title = %q", results[0].Title)
	}
	if !strings.Contains(results[0].Snippet, "1969") {
		t.Errorf("Snippet = %q, want to contain 1969", results[0].Snippet)
	}
	if results[1].URL != "https://example.com/water" {
		t.Errorf("plain URL mangled: %q", results[1].URL)
	}

	if got := query.Get("q"); got != "moon landing year" {
		t.Errorf("q = %q", got)
	}
	if got := query.Get("kp"); got != "1" {
		t.Errorf("kp = %q, want 1 (strict)", got)
	}
	if got := query.Get("kl"); got != "wt-wt" {
		t.Errorf("kl = %q", got)
	}
}

func TestSearchTextMaxResults(t *testing.T) {
	t.Parallel()

	srv := newTextServer(t, nil)
	defer srv.Close()

	p := New(WithBaseURLs(srv.URL, srv.URL))
	results, err := p.SearchText(context.Background(), "q", search.Options{MaxResults: 1})
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
}

func TestSearchTextServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(WithBaseURLs(srv.URL, srv.URL))
	_, err := p.SearchText(context.Background(), "q", search.Options{})
	if !fault.IsKind(err, fault.Transport) {
		t.Errorf("err = %v, want transport fault", err)
	}
}

func TestSearchImages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/" && r.URL.Query().Get("iax") == "images":
			fmt.Fprint(w, `<script>var x = {"vqd":"4-123456789"};</script>`)
		case r.URL.Path == "/i.js":
			if got := r.URL.Query().Get("vqd"); got != "4-123456789" {
				t.Errorf("vqd = %q", got)
			}
			fmt.Fprint(w, `{"results":[
				{"title":"Solar farm","image":"https://img.example.org/solar.jpg","url":"https://example.org/solar"},
				{"title":"No image entry","image":"","url":"https://example.org/none"},
				{"title":"Panels","image":"https://img.example.org/panels.jpg","url":"https://example.org/panels"}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := New(WithBaseURLs(srv.URL, srv.URL))
	results, err := p.SearchImages(context.Background(), "solar energy panels", search.Options{MaxResults: 5})
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (empty image skipped)", len(results))
	}
	if results[0].ImageURL != "https://img.example.org/solar.jpg" {
		t.Errorf("ImageURL = %q", results[0].ImageURL)
	}
	if results[0].SourceURL != "https://example.org/solar" {
		t.Errorf("SourceURL = %q", results[0].SourceURL)
	}
}

func TestSearchImagesNoToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing useful</body></html>`)
	}))
	defer srv.Close()

	p := New(WithBaseURLs(srv.URL, srv.URL))
	_, err := p.SearchImages(context.Background(), "q", search.Options{})
	if !fault.IsKind(err, fault.Parse) {
		t.Errorf("err = %v, want parse fault", err)
	}
}

func TestExtractVQD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page string
		want string
	}{
		{"double quoted", `vqd="4-abc"`, "4-abc"},
		{"single quoted", `vqd='4-def'`, "4-def"},
		{"query param style", `/i.js?q=x&vqd=4-ghi&o=json`, "4-ghi"},
		{"absent", `<html></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extractVQD(tt.page); got != tt.want {
				t.Errorf("extractVQD = %q, want %q", got, tt.want)
			}
		})
	}
}
