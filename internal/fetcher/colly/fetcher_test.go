package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/career-crawler/internal/crawler"
)

func TestClientGetReturnsBodyAndHeaders(t *testing.T) {
	t.Parallel()

	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/careers">Careers</a>`)
	}))
	defer srv.Close()

	client := New(Config{Timeout: time.Second})
	headers := http.Header{}
	headers.Set("User-Agent", "career-test/1.0")
	headers.Set("Accept", "text/html")

	resp, err := client.Get(context.Background(), crawler.FetchRequest{URL: srv.URL + "/", Headers: headers})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "/careers")
	require.Equal(t, "text/html", resp.Headers.Get("Content-Type"))
	require.Equal(t, srv.URL+"/", resp.URL)
	got := <-seen
	require.Equal(t, "career-test/1.0", got.Get("User-Agent"))
	require.Equal(t, "text/html", got.Get("Accept"))
}

func TestClientGetReturnsErrorStatusesAsResponses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(Config{Timeout: time.Second})

	resp, err := client.Get(context.Background(), crawler.FetchRequest{URL: srv.URL + "/robots.txt"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Get(context.Background(), crawler.FetchRequest{URL: srv.URL + "/broken"})
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestClientGetRevisitsURLs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client := New(Config{Timeout: time.Second})
	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), crawler.FetchRequest{URL: srv.URL})
		require.NoError(t, err)
	}
}

func TestClientGetTimesOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := New(Config{})
	start := time.Now()
	_, err := client.Get(context.Background(), crawler.FetchRequest{URL: srv.URL, Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestClientGetTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(Config{Timeout: time.Second}).Get(context.Background(), crawler.FetchRequest{URL: addr})
	require.Error(t, err)
}

func TestBuildCollectorUsesRequestContextAndAgent(t *testing.T) {
	t.Parallel()

	client := New(Config{Timeout: time.Second})
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	headers := http.Header{"User-Agent": {"coverage-agent"}}

	collector := client.buildCollector(ctx, crawler.FetchRequest{URL: "https://example.com", Headers: headers},
		time.Unix(0, 0), &crawler.FetchResponse{}, new(error))
	require.Equal(t, "coverage-agent", collector.UserAgent)
	require.Equal(t, "marker", collector.Context.Value(ctxKey{}))
	require.True(t, collector.IgnoreRobotsTxt)
	require.True(t, collector.ParseHTTPErrorResponse)
}

type ctxKey struct{}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	client := New(Config{})
	req := crawler.FetchRequest{
		URL:     "https://example.com",
		Headers: http.Header{"X-Trace": {"yes"}},
	}
	var result crawler.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	client.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "body", string(result.Body))
	require.Equal(t, "ok", result.Headers.Get("X-Resp"))

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	collyReq := &colly.Request{Headers: &http.Header{}}
	copyHeaders(crawler.FetchRequest{}, collyReq)
	require.Empty(t, *collyReq.Headers)
}

func TestCopyHeadersReplacesExisting(t *testing.T) {
	t.Parallel()

	collyReq := &colly.Request{Headers: &http.Header{"User-Agent": {"colly"}}}
	copyHeaders(crawler.FetchRequest{Headers: http.Header{"User-Agent": {"career-test"}}}, collyReq)
	require.Equal(t, []string{"career-test"}, collyReq.Headers.Values("User-Agent"))
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

func newRedirectServer(t *testing.T, hits chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
		if r.URL.Path == "/go" {
			http.Redirect(w, r, "/private/secret", http.StatusFound)
			return
		}
		fmt.Fprint(w, "landed")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGetVetsRedirects(t *testing.T) {
	t.Parallel()

	hits := make(chan string, 4)
	srv := newRedirectServer(t, hits)
	errBlocked := errors.New("blocked")

	client := New(Config{Timeout: time.Second})
	var checked []string
	_, err := client.Get(context.Background(), crawler.FetchRequest{
		URL: srv.URL + "/go",
		CheckRedirect: func(target string) error {
			checked = append(checked, target)
			return errBlocked
		},
	})
	require.ErrorIs(t, err, errBlocked)
	require.Equal(t, []string{srv.URL + "/private/secret"}, checked)

	close(hits)
	var paths []string
	for p := range hits {
		paths = append(paths, p)
	}
	require.Equal(t, []string{"/go"}, paths)
}

func TestClientGetFollowsAllowedRedirects(t *testing.T) {
	t.Parallel()

	hits := make(chan string, 4)
	srv := newRedirectServer(t, hits)

	client := New(Config{Timeout: time.Second})
	resp, err := client.Get(context.Background(), crawler.FetchRequest{
		URL:           srv.URL + "/go",
		CheckRedirect: func(string) error { return nil },
	})
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/private/secret", resp.URL)
	require.Equal(t, "landed", string(resp.Body))

	// Requests without a check keep following redirects.
	resp, err = client.Get(context.Background(), crawler.FetchRequest{URL: srv.URL + "/go"})
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/private/secret", resp.URL)
}

func TestCheckRedirectStopsLongChains(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	via := make([]*http.Request, maxRedirects)
	require.Error(t, checkRedirect(req, via))
	require.NoError(t, checkRedirect(req, via[:1]))
}
