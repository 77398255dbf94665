package reconciler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

const (
	maxPostLength    = 280
	maxCommentLength = 500
)

// LoadFeed fetches the feed and replaces the held one.
func (r *Reconciler) LoadFeed(ctx context.Context) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	t := target{kind: targetFeed}
	if !r.acquire(t) {
		return skip(nil)
	}

	since := r.gen
	var got []views.PostView
	return r.launch(ctx, GestureLoadFeed, t, func(ctx context.Context) (err error) {
		got, err = r.gw.FetchFeed(ctx)
		return err
	}, func(err error) {
		if err == nil {
			r.lists[Feed] = r.merge(Feed, r.ingest(got, since), nil, since)
		}
	})
}

// ActivateTab loads a profile tab the first time it is shown. Later
// activations, and activations while the first load is running, are skipped.
func (r *Reconciler) ActivateTab(ctx context.Context, tab views.Tab) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	if r.profile == 0 {
		return skip(apperrors.Validation("no profile to load tabs for"))
	}
	if !tab.Valid() {
		return skip(apperrors.Validation(fmt.Sprintf("unknown tab %q", tab)))
	}
	if _, loaded := r.lists[TabList(tab)]; loaded {
		return skip(nil)
	}
	t := target{targetTab, tabIndex(tab)}
	if !r.acquire(t) {
		return skip(nil)
	}

	profile := r.profile
	since := r.gen
	var got []views.PostView
	return r.launch(ctx, GestureLoadTab, t, func(ctx context.Context) (err error) {
		got, err = r.gw.FetchTab(ctx, tab, profile)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		tags := make(map[int]time.Time)
		for _, v := range got {
			if at := tagOf(tab, v); at != nil {
				tags[v.ID] = *at
			}
		}
		r.lists[TabList(tab)] = r.merge(TabList(tab), r.ingest(got, since), tags, since)
		if r.ownTabs() {
			r.realign(tab, since)
		}
	})
}

// OpenComments fetches every top-level comment of a post when fewer are held
// than the post counts, and replaces the held ones with the result.
func (r *Reconciler) OpenComments(ctx context.Context, postID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	p, ok := r.posts[postID]
	if !ok {
		return skip(apperrors.NotFound("Post not found"))
	}
	if topLevel(p.Comments) >= p.Counts.Comments {
		return skip(nil)
	}
	t := target{targetCommentList, postID}
	if !r.acquire(t) {
		return skip(nil)
	}

	since := r.gen
	var got []views.CommentView
	return r.launch(ctx, GestureOpenComments, t, func(ctx context.Context) (err error) {
		got, err = r.gw.FetchComments(ctx, postID)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		q, ok := r.posts[postID]
		if !ok {
			return
		}
		held := func(id int) int {
			return slices.IndexFunc(q.Comments, func(c Comment) bool { return c.ID == id })
		}
		comments := make([]Comment, 0, len(got))
		for _, c := range newComments(got, r.viewer.ID) {
			ct := target{targetComment, c.ID}
			if r.gone[ct] {
				continue
			}
			// keep comments changed here since the request was issued
			if r.newer(ct, since) {
				if j := held(c.ID); j >= 0 {
					c = q.Comments[j]
				}
			}
			comments = append(comments, c)
		}
		for _, c := range q.Comments {
			if r.touched[target{targetComment, c.ID}] > since &&
				!slices.ContainsFunc(comments, func(x Comment) bool { return x.ID == c.ID }) {
				comments = append(comments, c)
			}
		}
		q.Comments = comments
		r.storePost(q)
	})
}

// LoadFollowing fetches the ids the viewer follows.
func (r *Reconciler) LoadFollowing(ctx context.Context) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	t := target{kind: targetFollowing}
	if !r.acquire(t) {
		return skip(nil)
	}

	since := r.gen
	var got []int
	return r.launch(ctx, GestureLoadFollowing, t, func(ctx context.Context) (err error) {
		got, err = r.gw.FollowingIDs(ctx)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		set := make(map[int]bool, len(got))
		for _, id := range got {
			set[id] = true
		}
		for id, on := range r.following {
			if r.newer(target{targetUser, id}, since) {
				set[id] = on
			}
		}
		r.following = set
	})
}

// checkContent trims content and enforces the length bound the server
// applies, so obviously invalid input never leaves the client.
func (r *Reconciler) checkContent(content string, max int, what string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if err := r.validate.Var(trimmed, fmt.Sprintf("required,max=%d", max)); err != nil {
		if trimmed == "" {
			return "", apperrors.Validation(what + " content is required")
		}
		return "", apperrors.Validation(fmt.Sprintf("%s must be %d characters or less", what, max))
	}
	return trimmed, nil
}

// SubmitPost creates a post and, once the server has it, puts it at the top
// of the feed and of the viewer's posts tab.
func (r *Reconciler) SubmitPost(ctx context.Context, content string) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	content, err := r.checkContent(content, maxPostLength, "Post")
	if err != nil {
		return skip(err)
	}
	t := target{kind: targetComposePost}
	if !r.acquire(t) {
		return skip(nil)
	}

	var created views.PostView
	return r.launch(ctx, GestureSubmitPost, t, func(ctx context.Context) (err error) {
		created, err = r.gw.CreatePost(ctx, content)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		r.storePost(newPost(created, r.viewer.ID))
		r.touch(target{targetPost, created.ID})
		if n, ok := r.postCounts[r.viewer.ID]; ok {
			r.postCounts[r.viewer.ID] = n + 1
		}
		r.prepend(Feed, created.ID, nil)
		if r.ownTabs() {
			r.prepend(TabList(views.TabPosts), created.ID, nil)
		}
	})
}

// SubmitComment adds a top-level comment once the server accepts it. The post
// moves to the top of the viewer's comments tab.
func (r *Reconciler) SubmitComment(ctx context.Context, postID int, content string) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	if _, ok := r.posts[postID]; !ok {
		return skip(apperrors.NotFound("Post not found"))
	}
	content, err := r.checkContent(content, maxCommentLength, "Comment")
	if err != nil {
		return skip(err)
	}
	t := target{targetComposeComment, postID}
	if !r.acquire(t) {
		return skip(nil)
	}

	var created views.CommentView
	return r.launch(ctx, GestureSubmitComment, t, func(ctx context.Context) (err error) {
		created, err = r.gw.CreateComment(ctx, postID, content)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		p, ok := r.posts[postID]
		if !ok {
			return
		}
		p.Comments = append(slices.Clip(p.Comments), newComment(created, r.viewer.ID))
		p.Counts.Comments++
		r.storePost(p)
		r.touch(target{targetComment, created.ID})
		if r.ownTabs() {
			r.moveToFront(TabList(views.TabComments), postID, created.CreatedAt)
		}
	})
}

// DeletePost removes a post from every list once the server confirms the
// delete. Nothing changes locally before that, and nothing on failure.
func (r *Reconciler) DeletePost(ctx context.Context, postID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	p, ok := r.posts[postID]
	if !ok {
		return skip(apperrors.NotFound("Post not found"))
	}
	if p.Author.ID != r.viewer.ID && !r.viewer.IsAdmin {
		return skip(apperrors.Forbidden("You can only delete your own posts"))
	}
	t := target{targetPost, postID}
	if !r.acquire(t) {
		return skip(nil)
	}
	r.deleting[t] = true

	return r.launch(ctx, GestureDeletePost, t, func(ctx context.Context) error {
		_, err := r.gw.DeletePost(ctx, postID)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		r.forgetPost(postID)
		if n, ok := r.postCounts[p.Author.ID]; ok {
			r.postCounts[p.Author.ID] = n - 1
		}
	})
}

// DeleteComment removes a comment and its held replies once the server
// confirms the delete.
func (r *Reconciler) DeleteComment(ctx context.Context, commentID int) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return skip(ErrClosed)
	}
	p, i, ok := r.findComment(commentID)
	if !ok {
		return skip(apperrors.NotFound("Comment not found"))
	}
	if p.Comments[i].User.ID != r.viewer.ID && !r.viewer.IsAdmin {
		return skip(apperrors.Forbidden("You can only delete your own comments"))
	}
	t := target{targetComment, commentID}
	if !r.acquire(t) {
		return skip(nil)
	}
	r.deleting[t] = true

	return r.launch(ctx, GestureDeleteComment, t, func(ctx context.Context) error {
		_, err := r.gw.DeleteComment(ctx, commentID)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		q, _, ok := r.findComment(commentID)
		if !ok {
			return
		}
		kept := make([]Comment, 0, len(q.Comments))
		for _, c := range q.Comments {
			if c.ID == commentID {
				if c.ParentID == nil {
					q.Counts.Comments--
				}
				r.gone[target{targetComment, c.ID}] = true
				continue
			}
			if c.ParentID != nil && *c.ParentID == commentID {
				r.gone[target{targetComment, c.ID}] = true
				continue
			}
			kept = append(kept, c)
		}
		q.Comments = kept
		r.storePost(q)
	})
}
