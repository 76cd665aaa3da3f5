package crawler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
)

// fakeSite serves a static link graph through the PageFetcher interface and
// counts how often each URL was fetched.
type fakeSite struct {
	mu      sync.Mutex
	pages     map[string][]Anchor
	redirects map[string]string
	fetches   map[string]int
	before    func(ctx context.Context, rawURL string)
}

func newFakeSite(pages map[string][]Anchor) *fakeSite {
	return &fakeSite{pages: pages, fetches: make(map[string]int)}
}

func (s *fakeSite) PickUserAgent() string { return "test-agent" }

func (s *fakeSite) Fetch(ctx context.Context, rawURL, _ string, redirects RedirectCheck) (Page, error) {
	if s.before != nil {
		s.before(ctx, rawURL)
	}
	s.mu.Lock()
	s.fetches[rawURL]++
	target, redirected := s.redirects[rawURL]
	s.mu.Unlock()

	pageURL := rawURL
	if redirected {
		if redirects != nil {
			if err := redirects(target); err != nil {
				return Page{}, &FetchError{URL: rawURL, Err: err}
			}
		}
		s.mu.Lock()
		s.fetches[target]++
		s.mu.Unlock()
		pageURL = target
	}

	s.mu.Lock()
	anchors, ok := s.pages[pageURL]
	s.mu.Unlock()
	if !ok {
		return Page{}, &FetchError{URL: rawURL, Err: &StatusError{URL: pageURL, StatusCode: http.StatusNotFound}}
	}
	return Page{URL: pageURL, StatusCode: http.StatusOK, Anchors: anchors}, nil
}

func (s *fakeSite) fetchCount(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[rawURL]
}

func (s *fakeSite) fetched() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.fetches))
	for k, v := range s.fetches {
		out[k] = v
	}
	return out
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeHTTPClient implements HTTPClient from a URL-keyed table.
type fakeHTTPClient struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	redirects map[string]string
	calls     map[string]int
	requests  []FetchRequest
	before    func(rawURL string)
}

func newFakeHTTPClient(responses map[string]fakeResponse) *fakeHTTPClient {
	return &fakeHTTPClient{responses: responses, calls: make(map[string]int)}
}

func (c *fakeHTTPClient) Get(_ context.Context, req FetchRequest) (FetchResponse, error) {
	if c.before != nil {
		c.before(req.URL)
	}
	c.mu.Lock()
	c.calls[req.URL]++
	c.requests = append(c.requests, req)
	finalURL := req.URL
	target, redirected := c.redirects[req.URL]
	c.mu.Unlock()

	if redirected {
		if req.CheckRedirect != nil {
			if err := req.CheckRedirect(target); err != nil {
				return FetchResponse{}, err
			}
		}
		c.mu.Lock()
		c.calls[target]++
		c.mu.Unlock()
		finalURL = target
	}

	c.mu.Lock()
	resp, ok := c.responses[finalURL]
	c.mu.Unlock()
	if !ok {
		return FetchResponse{}, errors.New("connection refused")
	}
	if resp.err != nil {
		return FetchResponse{}, resp.err
	}
	return FetchResponse{URL: finalURL, StatusCode: resp.status, Body: []byte(resp.body)}, nil
}

func (c *fakeHTTPClient) callCount(rawURL string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[rawURL]
}

// lineExtractor treats each body line "href|text" as one anchor.
type lineExtractor struct{}

func (lineExtractor) ExtractAnchors(body []byte) ([]Anchor, error) {
	if string(body) == "<malformed" {
		return nil, ErrParse
	}
	var anchors []Anchor
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if line == "" {
			continue
		}
		href, text, _ := strings.Cut(line, "|")
		anchors = append(anchors, Anchor{Href: href, Text: text})
	}
	return anchors, nil
}

type staticIDs struct{ id string }

func (s staticIDs) NewID() (string, error) { return s.id, nil }
