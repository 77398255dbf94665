// Package typeahead debounces search-as-you-type queries.
//
// Every call to Query restarts the delay, so only the last query of a burst
// reaches the search function. Responses are numbered by query and one that
// arrives after a newer query was made is dropped, whatever order the
// responses come back in.
package typeahead

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the pause after the last keystroke before searching.
const DefaultDelay = 300 * time.Millisecond

type SearchFunc[T any] func(ctx context.Context, query string) ([]T, error)

// Result is the answer to one query.
type Result[T any] struct {
	Seq   uint64
	Query string
	Items []T
	Err   error
}

type Searcher[T any] struct {
	search  SearchFunc[T]
	delay   time.Duration
	results chan Result[T]
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	closed bool
}

func New[T any](search SearchFunc[T], delay time.Duration) *Searcher[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Searcher[T]{
		search:  search,
		delay:   delay,
		results: make(chan Result[T], 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Results delivers the latest current result. An unread result is replaced
// by a newer one.
func (s *Searcher[T]) Results() <-chan Result[T] {
	return s.results
}

// Query schedules a search for text, superseding any earlier query. Blank
// text clears the results at once without searching.
func (s *Searcher[T]) Query(text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.seq
	}
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.deliver(Result[T]{Seq: seq})
		return seq
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(seq, text) })
	return seq
}

func (s *Searcher[T]) fire(seq uint64, text string) {
	if !s.current(seq) {
		return
	}
	items, err := s.search(s.ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		return
	}
	s.deliver(Result[T]{Seq: seq, Query: text, Items: items, Err: err})
}

func (s *Searcher[T]) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && seq == s.seq
}

// deliver replaces any unread result with res. The caller holds s.mu.
func (s *Searcher[T]) deliver(res Result[T]) {
	for {
		select {
		case s.results <- res:
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}

// Close stops the pending timer and cancels searches in flight. Their
// results are discarded.
func (s *Searcher[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
}
