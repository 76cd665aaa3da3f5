// Package crawler implements the career-page search engine: the BFS frontier,
// the polite fetcher, robots.txt enforcement, keyword matching, and the
// coordinator that runs a worker pool over them until the first match.
package crawler
