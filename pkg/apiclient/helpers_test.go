package apiclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func readAll(t *testing.T, r *http.Request) []byte {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	return b
}

// scriptedTransport replays results in order and repeats the last one.
type scriptedTransport struct {
	mu      sync.Mutex
	results []AttemptResult
	calls   int
	descs   []RequestDescriptor
}

func (s *scriptedTransport) RoundTrip(_ context.Context, desc RequestDescriptor) AttemptResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descs = append(s.descs, desc)
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i]
}

func (s *scriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingSleeper returns immediately and remembers requested delays.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// countingFetcher serves resources from a map and counts calls.
type countingFetcher struct {
	mu        sync.Mutex
	resources map[string]Payload
	calls     int
}

func (f *countingFetcher) Fetch(_ context.Context, resource string) (Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.resources[resource]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return p, nil
}

func (f *countingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func serverErr() AttemptResult {
	return Retryable(&FailureError{Kind: KindServerError, Status: http.StatusInternalServerError})
}

func connErr() AttemptResult {
	return Retryable(&FailureError{Kind: KindConnection, Cause: io.EOF})
}
