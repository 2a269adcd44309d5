package fact_test

import (
	"testing"

	"github.com/auricle-ai/auricle/internal/fact"
)

func TestBlocklistDefaults(t *testing.T) {
	t.Parallel()

	b := fact.NewBlocklist()

	blocked := []string{
		"https://www.pornhub.com/view?v=1",
		"https://casino.example.com/slots",
		"https://XNXX.example.org/",
		"not a url but xxx anyway",
	}
	for _, u := range blocked {
		if !b.Blocked(u) {
			t.Errorf("Blocked(%q) = false, want true", u)
		}
	}

	allowed := []string{
		"https://en.wikipedia.org/wiki/Eiffel_Tower",
		"https://www.reuters.com/article/fact-check",
		"https://example.org/essex-history", // path, not hostname
	}
	for _, u := range allowed {
		if b.Blocked(u) {
			t.Errorf("Blocked(%q) = true, want false", u)
		}
	}
}

func TestBlocklistExtraPatterns(t *testing.T) {
	t.Parallel()

	b := fact.NewBlocklist("Example-Tabloid", "  ", "")

	if !b.Blocked("https://news.example-tabloid.co.uk/story") {
		t.Error("extra pattern not applied")
	}
	if b.Blocked("https://example.org/") {
		t.Error("blank extra patterns must not block everything")
	}
}
