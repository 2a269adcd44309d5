package fact

import (
	"net/url"
	"strings"
)

// defaultBlockedHosts are hostname fragments excluded from evidence. The
// list covers adult and gambling domains that web search surfaces for
// colloquial claim phrasings.
var defaultBlockedHosts = []string{
	"porn", "xxx", "sex", "adult", "xvideos", "pornhub",
	"xhamster", "redtube", "youporn", "tube8", "spankbang",
	"xnxx", "onlyfans", "escort", "casino", "gambling",
}

// Blocklist rejects evidence URLs whose hostname contains any configured
// fragment. Matching is case-insensitive.
type Blocklist struct {
	patterns []string
}

// NewBlocklist returns a Blocklist with the default fragments plus any
// extras from configuration.
func NewBlocklist(extra ...string) *Blocklist {
	patterns := make([]string, 0, len(defaultBlockedHosts)+len(extra))
	for _, p := range defaultBlockedHosts {
		patterns = append(patterns, strings.ToLower(p))
	}
	for _, p := range extra {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Blocklist{patterns: patterns}
}

// Blocked reports whether rawURL must be excluded from evidence. URLs that
// do not parse to a hostname are matched against the raw string, so a
// malformed adult URL still gets rejected.
func (b *Blocklist) Blocked(rawURL string) bool {
	subject := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		subject = u.Hostname()
	}
	subject = strings.ToLower(subject)

	for _, p := range b.patterns {
		if strings.Contains(subject, p) {
			return true
		}
	}
	return false
}
