package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// Registration is the sign-up payload.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, in Registration) (views.Profile, error) {
	var out views.Profile
	err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out)
	return out, err
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (views.Session, error) {
	var out views.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return views.Session{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) Me(ctx context.Context) (views.Profile, error) {
	var out views.Profile
	err := c.get(ctx, "/api/users/me", nil, &out)
	return out, err
}

func (c *Client) ToggleLike(ctx context.Context, postID int) (views.ToggleResult, error) {
	var out views.ToggleResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), nil, &out)
	return out, err
}

func (c *Client) ToggleRepost(ctx context.Context, postID int) (views.ToggleResult, error) {
	var out views.ToggleResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/repost", postID), nil, &out)
	return out, err
}

func (c *Client) ToggleCommentLike(ctx context.Context, commentID int) (views.ToggleResult, error) {
	var out views.ToggleResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/like", commentID), nil, &out)
	return out, err
}

func (c *Client) ToggleFollow(ctx context.Context, userID int) (views.FollowResult, error) {
	var out views.FollowResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", userID), nil, &out)
	return out, err
}

func (c *Client) ToggleVisibility(ctx context.Context, postID int) (views.VisibilityResult, error) {
	var out views.VisibilityResult
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/posts/%d/visibility", postID), nil, &out)
	return out, err
}

func (c *Client) DeletePost(ctx context.Context, postID int) (views.DeleteResult, error) {
	var out views.DeleteResult
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), nil, &out)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, commentID int) (views.DeleteResult, error) {
	var out views.DeleteResult
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, &out)
	return out, err
}

func (c *Client) CreatePost(ctx context.Context, content string) (views.PostView, error) {
	var out views.PostView
	err := c.do(ctx, http.MethodPost, "/api/posts", map[string]string{"content": content}, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, postID int, content string) (views.CommentView, error) {
	return c.Reply(ctx, postID, content, nil)
}

// Reply creates a comment, nested under parentID when it is set.
func (c *Client) Reply(ctx context.Context, postID int, content string, parentID *int) (views.CommentView, error) {
	var out views.CommentView
	body := struct {
		Content  string `json:"content"`
		ParentID *int   `json:"parentId,omitempty"`
	}{content, parentID}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), body, &out)
	return out, err
}

func (c *Client) FetchFeed(ctx context.Context) ([]views.PostView, error) {
	var out []views.PostView
	err := c.get(ctx, "/api/posts", nil, &out)
	return out, err
}

func (c *Client) FetchComments(ctx context.Context, postID int) ([]views.CommentView, error) {
	var out []views.CommentView
	err := c.get(ctx, fmt.Sprintf("/api/posts/%d/comments", postID), nil, &out)
	return out, err
}

func (c *Client) FetchTab(ctx context.Context, tab views.Tab, userID int) ([]views.PostView, error) {
	if !tab.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown tab %q", tab))
	}
	var out []views.PostView
	err := c.get(ctx, fmt.Sprintf("/api/users/%d/%s", userID, tab.Path()), nil, &out)
	return out, err
}

func (c *Client) FollowingIDs(ctx context.Context) ([]int, error) {
	var out views.FollowingIDs
	if err := c.get(ctx, "/api/users/me/following", nil, &out); err != nil {
		return nil, err
	}
	return out.FollowingIDs, nil
}

func (c *Client) PublicProfile(ctx context.Context, username string) (views.Profile, error) {
	var out views.Profile
	err := c.get(ctx, "/api/users/public/"+url.PathEscape(username), nil, &out)
	return out, err
}

func (c *Client) SearchUsers(ctx context.Context, q string) ([]views.UserSummary, error) {
	var out []views.UserSummary
	err := c.get(ctx, "/api/users/search", url.Values{"q": {q}}, &out)
	return out, err
}
