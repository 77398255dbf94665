package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

const (
	alice = 1
	bob   = 2
)

var (
	errNetwork = apperrors.Wrap(apperrors.CodeTransient, "POST /api/posts/10/like", errors.New("connection reset"))
	base       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	frozen     = base.Add(24 * time.Hour)
)

// call is a request held by the fake until the test answers it.
type call struct {
	method string
	id     int
	reply  chan error
}

type fakeGateway struct {
	started chan *call

	mu       sync.Mutex
	calls    []string
	block    map[string]bool
	fail     map[string]error
	feed     []views.PostView
	tabs     map[views.Tab][]views.PostView
	comments map[int][]views.CommentView
	follows  []int
	nextID   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		started:  make(chan *call, 32),
		block:    map[string]bool{},
		fail:     map[string]error{},
		tabs:     map[views.Tab][]views.PostView{},
		comments: map[int][]views.CommentView{},
		nextID:   1000,
	}
}

func (g *fakeGateway) hold(methods ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range methods {
		g.block[m] = true
	}
}

// release lets later calls of methods through. Calls already held stay held.
func (g *fakeGateway) release(methods ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range methods {
		delete(g.block, m)
	}
}

func (g *fakeGateway) failWith(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[method] = err
}

func (g *fakeGateway) recorded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// next returns the oldest held request.
func (g *fakeGateway) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-g.started:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no request was issued")
		return nil
	}
}

func (g *fakeGateway) await(ctx context.Context, method string, id int) error {
	g.mu.Lock()
	g.calls = append(g.calls, fmt.Sprintf("%s:%d", method, id))
	block, err := g.block[method], g.fail[method]
	g.mu.Unlock()

	if !block {
		return err
	}
	c := &call{method: method, id: id, reply: make(chan error, 1)}
	g.started <- c
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *fakeGateway) ToggleLike(ctx context.Context, postID int) (views.ToggleResult, error) {
	return views.ToggleResult{}, g.await(ctx, "like", postID)
}

func (g *fakeGateway) ToggleRepost(ctx context.Context, postID int) (views.ToggleResult, error) {
	return views.ToggleResult{}, g.await(ctx, "repost", postID)
}

func (g *fakeGateway) ToggleCommentLike(ctx context.Context, commentID int) (views.ToggleResult, error) {
	return views.ToggleResult{}, g.await(ctx, "comment_like", commentID)
}

func (g *fakeGateway) ToggleFollow(ctx context.Context, userID int) (views.FollowResult, error) {
	return views.FollowResult{}, g.await(ctx, "follow", userID)
}

func (g *fakeGateway) ToggleVisibility(ctx context.Context, postID int) (views.VisibilityResult, error) {
	return views.VisibilityResult{}, g.await(ctx, "visibility", postID)
}

func (g *fakeGateway) DeletePost(ctx context.Context, postID int) (views.DeleteResult, error) {
	if err := g.await(ctx, "delete_post", postID); err != nil {
		return views.DeleteResult{}, err
	}
	return views.DeleteResult{Success: true}, nil
}

func (g *fakeGateway) DeleteComment(ctx context.Context, commentID int) (views.DeleteResult, error) {
	if err := g.await(ctx, "delete_comment", commentID); err != nil {
		return views.DeleteResult{}, err
	}
	return views.DeleteResult{Success: true}, nil
}

func (g *fakeGateway) CreatePost(ctx context.Context, content string) (views.PostView, error) {
	if err := g.await(ctx, "create_post", 0); err != nil {
		return views.PostView{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return views.PostView{
		ID:        g.nextID,
		Content:   content,
		CreatedAt: frozen,
		Author:    views.UserSummary{ID: alice, Username: "alice"},
	}, nil
}

func (g *fakeGateway) CreateComment(ctx context.Context, postID int, content string) (views.CommentView, error) {
	if err := g.await(ctx, "create_comment", postID); err != nil {
		return views.CommentView{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return views.CommentView{
		ID:        g.nextID,
		PostID:    postID,
		Content:   content,
		CreatedAt: frozen,
		User:      views.UserSummary{ID: alice, Username: "alice"},
	}, nil
}

func (g *fakeGateway) FetchFeed(ctx context.Context) ([]views.PostView, error) {
	if err := g.await(ctx, "feed", 0); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.feed, nil
}

func (g *fakeGateway) FetchComments(ctx context.Context, postID int) ([]views.CommentView, error) {
	if err := g.await(ctx, "comments", postID); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.comments[postID], nil
}

func (g *fakeGateway) FetchTab(ctx context.Context, tab views.Tab, userID int) ([]views.PostView, error) {
	if err := g.await(ctx, "tab_"+string(tab), userID); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tabs[tab], nil
}

func (g *fakeGateway) FollowingIDs(ctx context.Context) ([]int, error) {
	if err := g.await(ctx, "following", 0); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.follows, nil
}

func summary(id int) views.UserSummary {
	name := map[int]string{alice: "alice", bob: "bob"}[id]
	return views.UserSummary{ID: id, Username: name, Name: name}
}

func postView(id, author int, likes int, age time.Duration) views.PostView {
	return views.PostView{
		ID:        id,
		Content:   fmt.Sprintf("post %d", id),
		CreatedAt: base.Add(-age),
		Author:    summary(author),
		Likes:     []views.Membership{},
		Reposts:   []views.Membership{},
		Comments:  []views.CommentView{},
		Counts:    views.PostCounts{Likes: likes},
	}
}

func commentView(id, postID, user int, age time.Duration) views.CommentView {
	return views.CommentView{
		ID:        id,
		PostID:    postID,
		Content:   fmt.Sprintf("comment %d", id),
		CreatedAt: base.Add(-age),
		User:      summary(user),
		Likes:     []views.Membership{},
	}
}

// seededGateway serves a feed with bob's post 10 (3 likes, five comments with
// one previewed) and alice's own post 11.
func seededGateway() *fakeGateway {
	g := newFakeGateway()

	p10 := postView(10, bob, 3, time.Hour)
	p10.Counts.Comments = 5
	p10.Comments = []views.CommentView{commentView(100, 10, bob, 50*time.Minute)}
	p11 := postView(11, alice, 0, 2*time.Hour)
	g.feed = []views.PostView{p10, p11}

	for i := 0; i < 5; i++ {
		g.comments[10] = append(g.comments[10], commentView(100+i, 10, bob, time.Duration(50-i)*time.Minute))
	}
	return g
}

func newTestReconciler(t *testing.T, g *fakeGateway, opts ...Option) *Reconciler {
	t.Helper()
	r := New(g, Viewer{ID: alice}, append([]Option{WithClock(func() time.Time { return frozen })}, opts...)...)
	t.Cleanup(r.Close)
	return r
}

func settle(t *testing.T, op *Operation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := op.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func loadFeed(t *testing.T, r *Reconciler) {
	t.Helper()
	require.NoError(t, settle(t, r.LoadFeed(context.Background())))
}

func ids(items []Item) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func find(items []Item, id int) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
