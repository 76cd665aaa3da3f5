package crawler

import "sync/atomic"

// ResultSignal is a one-shot "match found" flag carrying the matched URL.
// The first Set wins; later calls are no-ops. Workers poll Found as a
// cooperative cancellation check.
type ResultSignal struct {
	url  atomic.Pointer[string]
	done chan struct{}
}

// NewResultSignal returns a signal in the not-found state.
func NewResultSignal() *ResultSignal {
	return &ResultSignal{done: make(chan struct{})}
}

// Set records rawURL as the answer if no answer exists yet and reports whether
// this call won.
func (s *ResultSignal) Set(rawURL string) bool {
	if !s.url.CompareAndSwap(nil, &rawURL) {
		return false
	}
	close(s.done)
	return true
}

// Found reports whether a match has been recorded.
func (s *ResultSignal) Found() bool {
	return s.url.Load() != nil
}

// URL returns the recorded match, if any.
func (s *ResultSignal) URL() (string, bool) {
	p := s.url.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Done is closed when the signal transitions to found.
func (s *ResultSignal) Done() <-chan struct{} {
	return s.done
}
