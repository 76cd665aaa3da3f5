// Package api hosts the optional ops HTTP server that runs alongside a crawl.
// Routes:
//   - GET /healthz and /readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the state of the current crawl run.
package api
