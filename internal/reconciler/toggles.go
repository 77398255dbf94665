package reconciler

import (
	"context"
	"slices"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// relation selects one of the viewer's memberships on a post and the count
// that goes with it.
type relation struct {
	entry func(*Post) *Entry
	count func(*Post) *int
}

var (
	likes   = relation{func(p *Post) *Entry { return &p.Like }, func(p *Post) *int { return &p.Counts.Likes }}
	reposts = relation{func(p *Post) *Entry { return &p.Repost }, func(p *Post) *int { return &p.Counts.Reposts }}
)

// flip inverts rel on a held post. It reports whether the relation is now
// present and returns the inverse edit.
func (r *Reconciler) flip(postID int, rel relation) (bool, func()) {
	p := r.posts[postID]
	prev := *rel.entry(&p)
	if prev != nil {
		*rel.entry(&p) = nil
		*rel.count(&p)--
	} else {
		*rel.entry(&p) = newPending()
		*rel.count(&p)++
	}
	r.posts[postID] = p

	return prev == nil, func() {
		q, ok := r.posts[postID]
		if !ok {
			return
		}
		if prev != nil {
			*rel.entry(&q) = prev
			*rel.count(&q)++
		} else {
			*rel.entry(&q) = nil
			*rel.count(&q)--
		}
		r.posts[postID] = q
	}
}

// ownTabs reports whether the loaded tabs belong to the viewer, which is when
// the viewer's gestures move posts in and out of them.
func (r *Reconciler) ownTabs() bool {
	return r.profile != 0 && r.profile == r.viewer.ID
}

// migrate keeps a relation tab in step with a flip.
func (r *Reconciler) migrate(tab views.Tab, postID int, present bool) func() {
	if !r.ownTabs() {
		return noop
	}
	if present {
		now := r.now()
		return r.prepend(TabList(tab), postID, &now)
	}
	return r.remove(TabList(tab), postID)
}

func revertOnError(u undo) func(error) {
	return func(err error) {
		if err != nil {
			u.run()
		}
	}
}

// ToggleLike likes or unlikes a post.
func (r *Reconciler) ToggleLike(ctx context.Context, postID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	if _, ok := r.posts[postID]; !ok {
		return skip(apperrors.NotFound("Post not found"))
	}
	t := target{targetPost, postID}
	if !r.acquire(t) {
		return skip(nil)
	}

	present, inverse := r.flip(postID, likes)
	u := undo{inverse, r.migrate(views.TabLikes, postID, present)}

	return r.launch(ctx, GestureLike, t, func(ctx context.Context) error {
		_, err := r.gw.ToggleLike(ctx, postID)
		return err
	}, revertOnError(u))
}

// ToggleRepost reposts or un-reposts a post. Reposting one's own post is
// refused without contacting the server.
func (r *Reconciler) ToggleRepost(ctx context.Context, postID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	p, ok := r.posts[postID]
	if !ok {
		return skip(apperrors.NotFound("Post not found"))
	}
	if p.Author.ID == r.viewer.ID {
		return skip(apperrors.Rejected("You cannot repost your own posts"))
	}
	t := target{targetPost, postID}
	if !r.acquire(t) {
		return skip(nil)
	}

	present, inverse := r.flip(postID, reposts)
	u := undo{inverse, r.migrate(views.TabReposts, postID, present)}

	return r.launch(ctx, GestureRepost, t, func(ctx context.Context) error {
		_, err := r.gw.ToggleRepost(ctx, postID)
		return err
	}, revertOnError(u))
}

// updateComment replaces a held comment with fn applied to a copy.
func (r *Reconciler) updateComment(commentID int, fn func(*Comment)) {
	p, i, ok := r.findComment(commentID)
	if !ok {
		return
	}
	cs := slices.Clone(p.Comments)
	fn(&cs[i])
	p.Comments = cs
	r.posts[p.ID] = p
}

func (r *Reconciler) ToggleCommentLike(ctx context.Context, commentID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	p, i, ok := r.findComment(commentID)
	if !ok {
		return skip(apperrors.NotFound("Comment not found"))
	}
	t := target{targetComment, commentID}
	if !r.acquire(t) {
		return skip(nil)
	}

	prev := p.Comments[i].Like
	r.updateComment(commentID, func(c *Comment) {
		if prev != nil {
			c.Like = nil
			c.Counts.Likes--
		} else {
			c.Like = newPending()
			c.Counts.Likes++
		}
	})
	inverse := func() {
		r.updateComment(commentID, func(c *Comment) {
			if prev != nil {
				c.Like = prev
				c.Counts.Likes++
			} else {
				c.Like = nil
				c.Counts.Likes--
			}
		})
	}

	return r.launch(ctx, GestureCommentLike, t, func(ctx context.Context) error {
		_, err := r.gw.ToggleCommentLike(ctx, commentID)
		return err
	}, revertOnError(undo{inverse}))
}

func (r *Reconciler) setFollowing(userID int, on bool) {
	if r.following[userID] == on {
		return
	}
	r.following[userID] = on
	if n, ok := r.followers[userID]; ok {
		if on {
			r.followers[userID] = n + 1
		} else {
			r.followers[userID] = n - 1
		}
	}
}

// ToggleFollow follows or unfollows a user.
func (r *Reconciler) ToggleFollow(ctx context.Context, userID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	if userID == r.viewer.ID {
		return skip(apperrors.Rejected("Cannot follow yourself"))
	}
	t := target{targetUser, userID}
	if !r.acquire(t) {
		return skip(nil)
	}

	was := r.following[userID]
	r.setFollowing(userID, !was)

	return r.launch(ctx, GestureFollow, t, func(ctx context.Context) error {
		_, err := r.gw.ToggleFollow(ctx, userID)
		return err
	}, revertOnError(undo{func() { r.setFollowing(userID, was) }}))
}

// ToggleVisibility hides or shows one of the viewer's posts. Visibility is a
// property of the post, so it moves between the default lists and the hidden
// tab for everyone.
func (r *Reconciler) ToggleVisibility(ctx context.Context, postID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	p, ok := r.posts[postID]
	if !ok {
		return skip(apperrors.NotFound("Post not found"))
	}
	if p.Author.ID != r.viewer.ID {
		return skip(apperrors.Forbidden("You can only change visibility of your own posts"))
	}
	t := target{targetPost, postID}
	if !r.acquire(t) {
		return skip(nil)
	}

	hide := !p.IsHidden
	p.IsHidden = hide
	r.posts[postID] = p
	u := undo{func() {
		if q, ok := r.posts[postID]; ok {
			q.IsHidden = !hide
			r.posts[postID] = q
		}
	}}

	authorTabs := r.profile == p.Author.ID
	if hide {
		u = append(u, r.remove(Feed, postID))
		if authorTabs {
			u = append(u, r.remove(TabList(views.TabPosts), postID), r.prepend(TabList(views.TabHidden), postID, nil))
		}
	} else {
		u = append(u, r.insertByDate(Feed, postID))
		if authorTabs {
			u = append(u, r.remove(TabList(views.TabHidden), postID), r.insertByDate(TabList(views.TabPosts), postID))
		}
	}

	return r.launch(ctx, GestureVisibility, t, func(ctx context.Context) error {
		_, err := r.gw.ToggleVisibility(ctx, postID)
		return err
	}, revertOnError(u))
}
