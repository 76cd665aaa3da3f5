package api

import (
	"sync"
	"time"

	"github.com/JakeFAU/career-crawler/internal/crawler"
)

// Run states reported by RunTracker.
const (
	RunStatePending  = "pending"
	RunStateRunning  = "running"
	RunStateFound    = "found"
	RunStateNotFound = "not_found"
	RunStateFailed   = "failed"
)

// RunSnapshot is the JSON body of GET /v1/run.
type RunSnapshot struct {
	State    string          `json:"state"`
	Seed     string          `json:"seed,omitempty"`
	Started  time.Time       `json:"started,omitempty"`
	Finished time.Time       `json:"finished,omitempty"`
	Result   *crawler.Result `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// RunTracker records the lifecycle of the crawl the process is executing.
type RunTracker struct {
	mu   sync.RWMutex
	snap RunSnapshot
	now  func() time.Time
}

// NewRunTracker returns a tracker in the pending state.
func NewRunTracker() *RunTracker {
	return &RunTracker{snap: RunSnapshot{State: RunStatePending}, now: time.Now}
}

// Start marks the crawl of seed as running.
func (t *RunTracker) Start(seed string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = RunSnapshot{State: RunStateRunning, Seed: seed, Started: t.now()}
}

// Finish records the outcome of the run.
func (t *RunTracker) Finish(result crawler.Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Finished = t.now()
	t.snap.Result = &result
	switch {
	case err != nil:
		t.snap.State = RunStateFailed
		t.snap.Error = err.Error()
	case result.Found:
		t.snap.State = RunStateFound
	default:
		t.snap.State = RunStateNotFound
	}
}

// Snapshot returns a copy of the current state.
func (t *RunTracker) Snapshot() RunSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
