package typeahead

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func (r *recorder) search(ctx context.Context, q string) ([]string, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return []string{q + "-result"}, nil
}

func receive[T any](t *testing.T, ch <-chan Result[T]) Result[T] {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return Result[T]{}
	}
}

func TestOnlyLastQueryOfBurstSearches(t *testing.T) {
	rec := &recorder{}
	s := New(rec.search, 30*time.Millisecond)
	defer s.Close()

	s.Query("a")
	s.Query("al")
	last := s.Query("ali")

	res := receive(t, s.Results())
	assert.Equal(t, last, res.Seq)
	assert.Equal(t, "ali", res.Query)
	assert.Equal(t, []string{"ali-result"}, res.Items)
	assert.Equal(t, []string{"ali"}, rec.calls())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 2)
	search := func(ctx context.Context, q string) ([]string, error) {
		started <- q
		if q == "slow" {
			<-release
		}
		return []string{q}, nil
	}
	s := New(search, 5*time.Millisecond)
	defer s.Close()

	s.Query("slow")
	require.Equal(t, "slow", <-started)

	s.Query("fast")
	require.Equal(t, "fast", <-started)
	res := receive(t, s.Results())
	assert.Equal(t, "fast", res.Query)

	// the superseded search answers last and must not surface
	close(release)
	select {
	case res := <-s.Results():
		t.Fatalf("stale result delivered: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBlankQueryClearsImmediately(t *testing.T) {
	rec := &recorder{}
	s := New(rec.search, time.Hour)
	defer s.Close()

	s.Query("bob")
	s.Query("  ")
	res := receive(t, s.Results())
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Query)
	assert.Empty(t, rec.calls())
}

func TestCloseDropsPendingQuery(t *testing.T) {
	rec := &recorder{}
	s := New(rec.search, 20*time.Millisecond)
	s.Query("x")
	s.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.calls())
	select {
	case res := <-s.Results():
		t.Fatalf("unexpected result %+v", res)
	default:
	}
}

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"hello", nil},
		{"hi @alice and @bob_2!", []string{"alice", "bob_2"}},
		{"@alice @alice", []string{"alice"}},
		{"mail me@example.com", []string{"example"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractMentions(tt.text), tt.text)
	}
}

func TestActiveMention(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"", "", false},
		{"hey @al", "al", true},
		{"@", "", true},
		{"hey @al ", "", false},
		{"hey al", "", false},
		{"hey @al!", "", false},
		{"line\n@bo", "bo", true},
	}
	for _, tt := range tests {
		got, ok := ActiveMention(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestCompleteMention(t *testing.T) {
	assert.Equal(t, "hey @alice ", CompleteMention("hey @al", "alice"))
	assert.Equal(t, "@bob ", CompleteMention("@", "bob"))
	assert.Equal(t, "no mention", CompleteMention("no mention", "bob"))
}
