// Package reconciler keeps a client's view of posts, comments and follows
// consistent with the API while applying gestures optimistically.
//
// Posts live in one store keyed by id. The feed and the profile tabs are
// ordered id lists over that store, so a change to a post is seen by every
// list holding it. Toggles apply locally at once and are reverted if the
// request fails; deletes and submissions wait for the server. At most one
// request per target is in flight: a gesture on a busy target is skipped.
// A fetch never undoes what settled locally after the fetch was issued.
package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// Gateway is the slice of the API the reconciler drives. client.Client
// implements it.
type Gateway interface {
	ToggleLike(ctx context.Context, postID int) (views.ToggleResult, error)
	ToggleRepost(ctx context.Context, postID int) (views.ToggleResult, error)
	ToggleCommentLike(ctx context.Context, commentID int) (views.ToggleResult, error)
	ToggleFollow(ctx context.Context, userID int) (views.FollowResult, error)
	ToggleVisibility(ctx context.Context, postID int) (views.VisibilityResult, error)
	DeletePost(ctx context.Context, postID int) (views.DeleteResult, error)
	DeleteComment(ctx context.Context, commentID int) (views.DeleteResult, error)
	CreatePost(ctx context.Context, content string) (views.PostView, error)
	CreateComment(ctx context.Context, postID int, content string) (views.CommentView, error)
	FetchFeed(ctx context.Context) ([]views.PostView, error)
	FetchComments(ctx context.Context, postID int) ([]views.CommentView, error)
	FetchTab(ctx context.Context, tab views.Tab, userID int) ([]views.PostView, error)
	FollowingIDs(ctx context.Context) ([]int, error)
}

// Viewer is the signed-in user the reconciler acts for.
type Viewer struct {
	ID      int
	IsAdmin bool
}

type Option func(*Reconciler)

// WithProfile sets the user whose profile tabs ActivateTab loads.
func WithProfile(userID int) Option {
	return func(r *Reconciler) { r.profile = userID }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(r *Reconciler) { r.events = make(chan Event, n) }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

type Reconciler struct {
	gw       Gateway
	viewer   Viewer
	profile  int
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	events   chan Event
	wg       sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	posts       map[int]Post
	commentPost map[int]int
	lists       map[ListID]*list
	inflight    map[target]struct{}
	deleting    map[target]bool
	following   map[int]bool
	followers   map[int]int
	postCounts  map[int]int

	// gen counts local changes. A fetch remembers gen when it is issued and
	// leaves alone anything touched after that.
	gen     uint64
	touched map[target]uint64
	gone    map[target]bool
}

func New(gw Gateway, viewer Viewer, opts ...Option) *Reconciler {
	r := &Reconciler{
		gw:          gw,
		viewer:      viewer,
		log:         slog.Default(),
		validate:    validator.New(),
		now:         time.Now,
		events:      make(chan Event, 16),
		posts:       make(map[int]Post),
		commentPost: make(map[int]int),
		lists:       make(map[ListID]*list),
		inflight:    make(map[target]struct{}),
		deleting:    make(map[target]bool),
		following:   make(map[int]bool),
		followers:   make(map[int]int),
		postCounts:  make(map[int]int),
		touched:     make(map[target]uint64),
		gone:        make(map[target]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events delivers failures of gestures. Events are dropped when the channel
// is full, so reading it is optional.
func (r *Reconciler) Events() <-chan Event {
	return r.events
}

// Close detaches the reconciler from its view. Requests already in flight run
// to completion but their results are discarded, and new gestures fail with
// ErrClosed.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Wait blocks until every request issued so far has returned.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// acquire marks t busy. The caller holds r.mu.
func (r *Reconciler) acquire(t target) bool {
	if _, busy := r.inflight[t]; busy {
		return false
	}
	r.inflight[t] = struct{}{}
	return true
}

// launch issues call in the background for a target already acquired. settle
// runs under r.mu with the outcome unless the reconciler was closed, then the
// target is released.
func (r *Reconciler) launch(ctx context.Context, g Gesture, t target, call func(context.Context) error, settle func(error)) *Operation {
	op := newOperation()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := call(ctx)

		r.mu.Lock()
		closed := r.closed
		if !closed {
			r.record(t)
			settle(err)
		}
		delete(r.inflight, t)
		delete(r.deleting, t)
		r.mu.Unlock()

		if err != nil && !closed {
			r.log.Debug("gesture failed", "gesture", g, "id", t.id, "error", err)
			r.publish(Event{Gesture: g, ID: t.id, Err: err})
		}
		op.complete(err)
	}()
	return op
}

// touch marks t as changed locally. The caller holds r.mu.
func (r *Reconciler) touch(t target) {
	r.gen++
	r.touched[t] = r.gen
}

// record marks the entities a settling request changed. It runs before the
// settle callback so a comment being deleted can still be traced to its post.
func (r *Reconciler) record(t target) {
	switch t.kind {
	case targetPost, targetComposeComment, targetCommentList:
		r.touch(target{targetPost, t.id})
	case targetComment:
		r.touch(t)
		if postID, ok := r.commentPost[t.id]; ok {
			r.touch(target{targetPost, postID})
		}
	case targetUser:
		r.touch(t)
	}
}

// newer reports whether t changed locally after a fetch issued at since, or
// has a request in flight. The caller holds r.mu.
func (r *Reconciler) newer(t target, since uint64) bool {
	if _, busy := r.inflight[t]; busy {
		return true
	}
	return r.touched[t] > since
}

func (r *Reconciler) publish(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// busy reports whether postID or one of its held comments has a gesture in
// flight. The caller holds r.mu.
func (r *Reconciler) busy(postID int) bool {
	if _, ok := r.inflight[target{targetPost, postID}]; ok {
		return true
	}
	for _, c := range r.posts[postID].Comments {
		if _, ok := r.inflight[target{targetComment, c.ID}]; ok {
			return true
		}
	}
	return false
}

// fresher reports whether the held state of postID is newer than a fetch
// issued at since.
func (r *Reconciler) fresher(postID int, since uint64) bool {
	return r.busy(postID) || r.touched[target{targetPost, postID}] > since
}

// ingest stores posts fetched by a request issued at since and returns their
// ids in order. Posts deleted here are dropped. Posts with a gesture in
// flight, or changed after the request was issued, keep their local state so
// a gesture can still be reverted exactly and a confirmed one is not undone
// by an older snapshot.
func (r *Reconciler) ingest(vs []views.PostView, since uint64) []int {
	ids := make([]int, 0, len(vs))
	for _, v := range vs {
		if r.gone[target{targetPost, v.ID}] {
			continue
		}
		ids = append(ids, v.ID)
		if _, held := r.posts[v.ID]; held && r.fresher(v.ID, since) {
			continue
		}
		r.storePost(newPost(v, r.viewer.ID))
	}
	return ids
}

func (r *Reconciler) storePost(p Post) {
	if old, ok := r.posts[p.ID]; ok {
		for _, c := range old.Comments {
			delete(r.commentPost, c.ID)
		}
	}
	for _, c := range p.Comments {
		r.commentPost[c.ID] = p.ID
	}
	r.posts[p.ID] = p
}

func (r *Reconciler) forgetPost(postID int) {
	for _, c := range r.posts[postID].Comments {
		delete(r.commentPost, c.ID)
	}
	delete(r.posts, postID)
	r.gone[target{targetPost, postID}] = true
	r.dropEverywhere(postID)
}

// findComment locates a held comment. The caller holds r.mu.
func (r *Reconciler) findComment(commentID int) (Post, int, bool) {
	postID, ok := r.commentPost[commentID]
	if !ok {
		return Post{}, 0, false
	}
	p, ok := r.posts[postID]
	if !ok {
		return Post{}, 0, false
	}
	for i, c := range p.Comments {
		if c.ID == commentID {
			return p, i, true
		}
	}
	return Post{}, 0, false
}

// Feed returns the feed, or nil before LoadFeed has succeeded.
func (r *Reconciler) Feed() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items(Feed)
}

// Tab returns a profile tab and whether it has been loaded.
func (r *Reconciler) Tab(tab views.Tab) ([]Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, loaded := r.lists[TabList(tab)]
	return r.items(TabList(tab)), loaded
}

func (r *Reconciler) TabLoading(tab views.Tab) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[target{targetTab, tabIndex(tab)}]
	return ok
}

func (r *Reconciler) Post(postID int) (Post, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return p, ok
}

// Comment returns a held comment.
func (r *Reconciler) Comment(commentID int) (Comment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, i, ok := r.findComment(commentID)
	if !ok {
		return Comment{}, false
	}
	return p.Comments[i], true
}

// DeletePending reports whether a delete of the post is awaiting the server.
func (r *Reconciler) DeletePending(postID int) bool {
	return r.pending(target{targetPost, postID})
}

func (r *Reconciler) CommentDeletePending(commentID int) bool {
	return r.pending(target{targetComment, commentID})
}

func (r *Reconciler) CommentsLoading(postID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[target{targetCommentList, postID}]
	return ok
}

func (r *Reconciler) pending(t target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleting[t]
}

func (r *Reconciler) IsFollowing(userID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.following[userID]
}

// FollowerCount returns the follower count of a profile seen via
// TrackProfile.
func (r *Reconciler) FollowerCount(userID int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.followers[userID]
	return n, ok
}

// PostCount returns the post count of a profile seen via TrackProfile.
func (r *Reconciler) PostCount(userID int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.postCounts[userID]
	return n, ok
}

// TrackProfile records a profile's counts and follow state so gestures can
// adjust them.
func (r *Reconciler) TrackProfile(p views.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postCounts[p.ID] = p.Counts.Posts
	if _, busy := r.inflight[target{targetUser, p.ID}]; busy {
		return
	}
	r.followers[p.ID] = p.Counts.Followers
	if p.ID != r.viewer.ID {
		r.following[p.ID] = p.IsFollowing
	}
}

func tabIndex(tab views.Tab) int {
	for i, t := range views.Tabs {
		if t == tab {
			return i
		}
	}
	return -1
}
