package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

type AuthHandler struct {
	svc    *social.Service
	tokens *middleware.Tokens
	responder
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input social.Registration
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Invalid request body")
		return
	}

	profile, err := h.svc.Register(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Email and password are required")
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.fail(c, "log in", err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.fail(c, "generate token", err)
		return
	}

	actor := social.Actor{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
	profile, err := h.svc.Profile(c.Request.Context(), actor, user.ID)
	if err != nil {
		h.fail(c, "load profile", err)
		return
	}

	c.JSON(http.StatusOK, views.Session{Token: token, User: profile})
}

// GetMe returns the current user's profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	profile, err := h.svc.Profile(c.Request.Context(), actor, actor.ID)
	if err != nil {
		h.fail(c, "load profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
