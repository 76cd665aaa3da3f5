package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestKeywordMatcherWordBoundaries(t *testing.T) {
	m := NewKeywordMatcher(nil)

	tests := []struct {
		name string
		url  string
		text string
		want bool
	}{
		{name: "careers path", url: "http://example.com/careers", want: true},
		{name: "careers anchor text", url: "http://example.com/about", text: "Careers", want: true},
		{name: "jobs subdomain", url: "http://jobs.example.com/", want: true},
		{name: "hyphenated path token", url: "http://example.com/work-with-us", want: true},
		{name: "keyword in phrase", url: "http://example.com/x", text: "Join our team: open Jobs", want: true},
		{name: "scarecrow path", url: "http://example.com/scarecrow", want: false},
		{name: "carefully anchor text", url: "http://example.com/about", text: "carefully", want: false},
		{name: "homework path", url: "http://example.com/homework", want: false},
		{name: "jobsite host", url: "http://jobsite.com/", want: false},
		{name: "plain page", url: "http://example.com/about", text: "About us", want: false},
		{name: "accented suffix", url: "http://example.com/", text: "careersétude", want: false},
		{name: "accented letter after jobs", url: "http://example.com/", text: "jobsé", want: false},
		{name: "cyrillic prefix", url: "http://example.com/", text: "работаjobs", want: false},
		{name: "digit suffix", url: "http://example.com/", text: "jobs2", want: false},
		{name: "underscore joined", url: "http://example.com/", text: "career_path", want: false},
		{name: "non-ascii path suffix", url: "http://example.com/careersétude", want: false},
		{name: "ascii prefix", url: "http://example.com/", text: "ajobs", want: false},
		{name: "cyrillic separated by space", url: "http://example.com/", text: "работа jobs", want: true},
		{name: "accented word then keyword", url: "http://example.com/", text: "Offres d'emploi · Careers", want: true},
		{name: "keyword at path end", url: "http://example.com/fr/jobs", want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, m.IsCareerPage(mustParse(t, tc.url), tc.text))
		})
	}
}

func TestKeywordMatcherReportsSignal(t *testing.T) {
	m := NewKeywordMatcher(nil)

	sig, ok := m.Match(mustParse(t, "http://careers.example.com/open"), "Careers")
	require.True(t, ok)
	require.Equal(t, SignalHost, sig, "host is checked before path and text")

	sig, ok = m.Match(mustParse(t, "http://example.com/Jobs/"), "")
	require.True(t, ok)
	require.Equal(t, SignalHostPath, sig)

	sig, ok = m.Match(mustParse(t, "http://example.com/team"), "WORK with us")
	require.True(t, ok)
	require.Equal(t, SignalAnchorText, sig)
}

func TestKeywordMatcherCustomKeywords(t *testing.T) {
	m := NewKeywordMatcher([]string{" Hiring ", "hiring", ""})

	require.True(t, m.IsCareerPage(mustParse(t, "http://example.com/hiring"), ""))
	require.False(t, m.IsCareerPage(mustParse(t, "http://example.com/careers"), ""),
		"custom keywords replace the default set")
}

func TestKeywordMatcherQuotesMetacharacters(t *testing.T) {
	m := NewKeywordMatcher([]string{"c++"})
	require.False(t, m.IsCareerPage(mustParse(t, "http://example.com/cccc"), ""))
	require.True(t, m.IsCareerPage(mustParse(t, "http://example.com/"), "C++ openings"))
}
