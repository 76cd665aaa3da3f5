package crawler

import (
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/career-crawler/internal/metrics"
)

// Frontier is the thread-safe BFS queue plus the visited set.
//
// A URL is marked visited the moment Enqueue accepts it, so two workers that
// discover the same link concurrently produce exactly one entry. Dequeue
// blocks while the queue is empty but other entries are still in flight,
// since those may yield more work; once nothing is queued or in flight the
// frontier is exhausted and every waiter is released.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Entry
	visited  map[string]struct{}
	order    []string
	inFlight int
	closed   bool

	maxDepth int
	signal   *ResultSignal
	logger   *zap.Logger

	enqueued     int64
	duplicates   int64
	depthDropped int64
}

// NewFrontier builds an empty frontier. Enqueue refuses work once signal is found.
func NewFrontier(maxDepth int, signal *ResultSignal, logger *zap.Logger) *Frontier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if signal == nil {
		signal = NewResultSignal()
	}
	f := &Frontier{
		items:    make([]Entry, 0),
		visited:  make(map[string]struct{}),
		maxDepth: maxDepth,
		signal:   signal,
		logger:   logger,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue adds entry if its URL is unvisited, its depth is within bounds, and
// no match has been found yet. It reports whether the entry was accepted.
func (f *Frontier) Enqueue(entry Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.signal.Found() {
		return false
	}
	if entry.Depth > f.maxDepth {
		f.depthDropped++
		metrics.ObserveFrontier("depth_dropped")
		f.logger.Debug("max depth reached; dropping branch",
			zap.String("url", entry.URL),
			zap.Int("depth", entry.Depth),
			zap.Int("max_depth", f.maxDepth),
		)
		return false
	}
	if _, seen := f.visited[entry.URL]; seen {
		f.duplicates++
		metrics.ObserveFrontier("duplicate")
		return false
	}

	f.visited[entry.URL] = struct{}{}
	f.order = append(f.order, entry.URL)
	f.items = append(f.items, entry)
	f.enqueued++
	metrics.ObserveFrontier("enqueued")

	f.cond.Signal()
	return true
}

// Claim marks rawURL visited without queueing it, for pages reached by
// following a redirect. It reports false if the URL was already visited.
func (f *Frontier) Claim(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, seen := f.visited[rawURL]; seen {
		f.duplicates++
		metrics.ObserveFrontier("duplicate")
		return false
	}
	f.visited[rawURL] = struct{}{}
	f.order = append(f.order, rawURL)
	metrics.ObserveFrontier("claimed")
	return true
}

// Dequeue pops the oldest entry and counts it as in flight. It blocks while
// the queue is empty and work is still in flight. It returns false once the
// frontier is closed or exhausted.
func (f *Frontier) Dequeue() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return Entry{}, false
		}
		if len(f.items) > 0 {
			entry := f.items[0]
			f.items[0] = Entry{}
			f.items = f.items[1:]
			f.inFlight++
			return entry, true
		}
		if f.inFlight == 0 {
			// Exhausted: nothing queued and nobody left to produce more.
			f.closed = true
			f.cond.Broadcast()
			return Entry{}, false
		}
		f.cond.Wait()
	}
}

// Done releases the in-flight slot taken by Dequeue.
func (f *Frontier) Done(Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
	if f.inFlight == 0 && len(f.items) == 0 {
		f.cond.Broadcast()
	}
}

// Close stops accepting entries and wakes every blocked Dequeue. Safe to call
// more than once.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// InFlight returns the number of dequeued entries not yet marked Done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Visited returns the visited URLs in the order they were accepted.
func (f *Frontier) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Stats returns the frontier's share of the run counters.
func (f *Frontier) Stats() (enqueued, duplicates, depthDropped int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued, f.duplicates, f.depthDropped
}
