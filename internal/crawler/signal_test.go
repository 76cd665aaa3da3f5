package crawler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultSignalFirstSetWins(t *testing.T) {
	s := NewResultSignal()
	require.False(t, s.Found())
	_, ok := s.URL()
	require.False(t, ok)

	require.True(t, s.Set("http://example.com/careers"))
	require.False(t, s.Set("http://example.com/jobs"))

	got, ok := s.URL()
	require.True(t, ok)
	require.Equal(t, "http://example.com/careers", got)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel should be closed after the first set")
	}
}

func TestResultSignalConcurrentSetHasOneWinner(t *testing.T) {
	s := NewResultSignal()

	const setters = 32
	winners := make(chan string, setters)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < setters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			candidate := fmt.Sprintf("http://example.com/careers/%d", i)
			if s.Set(candidate) {
				winners <- candidate
			}
		}(i)
	}
	close(start)
	wg.Wait()
	close(winners)

	var won []string
	for w := range winners {
		won = append(won, w)
	}
	require.Len(t, won, 1)

	got, ok := s.URL()
	require.True(t, ok)
	require.Equal(t, won[0], got, "recorded url must belong to the winning setter")
}
