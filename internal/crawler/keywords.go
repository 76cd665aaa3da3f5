package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultKeywords are the tokens that mark a career/jobs page.
var DefaultKeywords = []string{
	"career",
	"careers",
	"job",
	"jobs",
	"work",
	"employment",
	"vacancy",
	"vacancies",
}

// Signal names which part of a link produced a keyword match.
type Signal string

// Signals checked by KeywordMatcher, in evaluation order.
const (
	SignalHost       Signal = "host"
	SignalHostPath   Signal = "host_path"
	SignalAnchorText Signal = "anchor_text"
)

// nonWordClass is anything but a letter, digit or underscore in any script.
// RE2's \b only knows ASCII word characters.
const nonWordClass = `[^\p{L}\p{N}_]`

// KeywordMatcher classifies a link as a career page candidate. Keywords match
// as whole tokens, so "/careers" matches while "/scarecrow" does not. Token
// edges are Unicode-aware: "jobsé" is one word, not "jobs" plus a suffix.
type KeywordMatcher struct {
	pattern *regexp.Regexp
}

// NewKeywordMatcher compiles a matcher for keywords, falling back to
// DefaultKeywords when none are usable.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	cleaned := normalizeKeywords(keywords)
	if len(cleaned) == 0 {
		cleaned = DefaultKeywords
	}
	quoted := make([]string, 0, len(cleaned))
	for _, kw := range cleaned {
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	return &KeywordMatcher{
		pattern: regexp.MustCompile(`(?:^|` + nonWordClass + `)(?:` + strings.Join(quoted, "|") + `)(?:$|` + nonWordClass + `)`),
	}
}

// IsCareerPage reports whether target or its anchor text looks like a careers page.
func (m *KeywordMatcher) IsCareerPage(target *url.URL, anchorText string) bool {
	_, ok := m.Match(target, anchorText)
	return ok
}

// Match is IsCareerPage that also reports which signal matched first.
func (m *KeywordMatcher) Match(target *url.URL, anchorText string) (Signal, bool) {
	if target != nil {
		host := strings.ToLower(target.Host)
		if m.pattern.MatchString(host) {
			return SignalHost, true
		}
		if m.pattern.MatchString(host + strings.ToLower(target.Path)) {
			return SignalHostPath, true
		}
	}
	if m.pattern.MatchString(strings.ToLower(anchorText)) {
		return SignalAnchorText, true
	}
	return "", false
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{})
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
