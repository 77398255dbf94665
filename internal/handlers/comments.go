package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

type CommentHandler struct {
	svc *social.Service
	responder
}

// GetComments returns all top-level comments for a post, oldest first
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid post ID")
		return
	}

	comments, err := h.svc.Comments(c.Request.Context(), middleware.ActorFrom(c), postID)
	if err != nil {
		h.fail(c, "fetch comments", err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid post ID")
		return
	}

	var input struct {
		Content  string `json:"content"`
		ParentID *int   `json:"parentId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Invalid request body")
		return
	}

	comment, err := h.svc.CreateComment(c.Request.Context(), middleware.ActorFrom(c), postID, input.Content, input.ParentID)
	if err != nil {
		h.fail(c, "create comment", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes a comment and its replies (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid comment ID")
		return
	}

	res, err := h.svc.DeleteComment(c.Request.Context(), middleware.ActorFrom(c), commentID)
	if err != nil {
		h.fail(c, "delete comment", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CommentHandler) LikeComment(c *gin.Context) {
	commentID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid comment ID")
		return
	}

	res, err := h.svc.ToggleCommentLike(c.Request.Context(), middleware.ActorFrom(c), commentID)
	if err != nil {
		h.fail(c, "toggle comment like", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
