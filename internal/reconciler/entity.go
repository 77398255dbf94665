package reconciler

import (
	"time"

	"github.com/google/uuid"

	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// Entry is the viewer's own like or repost. A nil Entry means the viewer holds
// no such relation.
type Entry interface {
	entry()
}

// Confirmed is a membership the server reported, with its row id.
type Confirmed struct {
	ID int
}

// Pending is a membership applied locally. It is replaced by a Confirmed entry
// the next time the post is fetched.
type Pending struct {
	LocalID uuid.UUID
}

func (Confirmed) entry() {}
func (Pending) entry()   {}

func newPending() Entry {
	return Pending{LocalID: uuid.New()}
}

func mine(ms []views.Membership, viewerID int) Entry {
	for _, m := range ms {
		if m.UserID == viewerID {
			return Confirmed{ID: m.ID}
		}
	}
	return nil
}

type Comment struct {
	ID        int
	PostID    int
	ParentID  *int
	Content   string
	CreatedAt time.Time
	User      views.UserSummary
	Counts    views.CommentCounts
	Like      Entry
}

func (c Comment) Liked() bool { return c.Like != nil }

// Post is the viewer's projection of a post. Counts are authoritative totals;
// Comments may hold only a preview.
type Post struct {
	ID        int
	Content   string
	CreatedAt time.Time
	IsHidden  bool
	Author    views.UserSummary
	Counts    views.PostCounts
	Comments  []Comment
	Like      Entry
	Repost    Entry
}

func (p Post) Liked() bool    { return p.Like != nil }
func (p Post) Reposted() bool { return p.Repost != nil }

// Item is a post as listed by the feed or a profile tab.
type Item struct {
	Post
	// Tag is when the post entered the tab: liked, reposted or last
	// commented on. Nil for the feed and the posts and hidden tabs.
	Tag *time.Time
}

func newComment(v views.CommentView, viewerID int) Comment {
	return Comment{
		ID:        v.ID,
		PostID:    v.PostID,
		ParentID:  v.ParentID,
		Content:   v.Content,
		CreatedAt: v.CreatedAt,
		User:      v.User,
		Counts:    v.Counts,
		Like:      mine(v.Likes, viewerID),
	}
}

func newComments(vs []views.CommentView, viewerID int) []Comment {
	out := make([]Comment, 0, len(vs))
	for _, v := range vs {
		out = append(out, newComment(v, viewerID))
	}
	return out
}

func newPost(v views.PostView, viewerID int) Post {
	return Post{
		ID:        v.ID,
		Content:   v.Content,
		CreatedAt: v.CreatedAt,
		IsHidden:  v.IsHidden,
		Author:    v.Author,
		Counts:    v.Counts,
		Comments:  newComments(v.Comments, viewerID),
		Like:      mine(v.Likes, viewerID),
		Repost:    mine(v.Reposts, viewerID),
	}
}

// tagOf returns the timestamp a tab listing attaches to v.
func tagOf(tab views.Tab, v views.PostView) *time.Time {
	switch tab {
	case views.TabLikes:
		return v.LikedAt
	case views.TabReposts:
		return v.RepostedAt
	case views.TabComments:
		return v.LastCommentedAt
	default:
		return nil
	}
}

func topLevel(cs []Comment) int {
	n := 0
	for _, c := range cs {
		if c.ParentID == nil {
			n++
		}
	}
	return n
}
