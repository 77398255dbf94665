package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

type PostHandler struct {
	svc *social.Service
	responder
}

// GetPosts returns the viewer's feed
func (h *PostHandler) GetPosts(c *gin.Context) {
	posts, err := h.svc.Feed(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		h.fail(c, "fetch posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var input struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Invalid request body")
		return
	}

	post, err := h.svc.CreatePost(c.Request.Context(), middleware.ActorFrom(c), input.Content)
	if err != nil {
		h.fail(c, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// DeletePost deletes a post (owner or admin)
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid post ID")
		return
	}

	res, err := h.svc.DeletePost(c.Request.Context(), middleware.ActorFrom(c), postID)
	if err != nil {
		h.fail(c, "delete post", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LikePost toggles the viewer's like
func (h *PostHandler) LikePost(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid post ID")
		return
	}

	res, err := h.svc.ToggleLike(c.Request.Context(), middleware.ActorFrom(c), postID)
	if err != nil {
		h.fail(c, "toggle like", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RepostPost toggles the viewer's repost
func (h *PostHandler) RepostPost(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid post ID")
		return
	}

	res, err := h.svc.ToggleRepost(c.Request.Context(), middleware.ActorFrom(c), postID)
	if err != nil {
		h.fail(c, "toggle repost", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ToggleVisibility hides or shows a post (author only)
func (h *PostHandler) ToggleVisibility(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid post ID")
		return
	}

	res, err := h.svc.ToggleVisibility(c.Request.Context(), middleware.ActorFrom(c), postID)
	if err != nil {
		h.fail(c, "toggle visibility", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
