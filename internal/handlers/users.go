package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

type UserHandler struct {
	svc *social.Service
	responder
}

// GetUserProfile returns a full profile to the user or an admin
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid user ID")
		return
	}

	profile, err := h.svc.Profile(c.Request.Context(), middleware.ActorFrom(c), userID)
	if err != nil {
		h.fail(c, "fetch user", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetPublicProfile looks an active user up by username
func (h *UserHandler) GetPublicProfile(c *gin.Context) {
	profile, err := h.svc.PublicProfile(c.Request.Context(), middleware.ActorFrom(c), c.Param("username"))
	if err != nil {
		h.fail(c, "fetch user", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var input social.ProfileUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Invalid request body")
		return
	}

	profile, err := h.svc.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c), input)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetMyFollowing returns the ids of users the viewer follows
func (h *UserHandler) GetMyFollowing(c *gin.Context) {
	ids, err := h.svc.FollowingIDs(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		h.fail(c, "fetch following", err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

// FollowUser toggles following a user
func (h *UserHandler) FollowUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid user ID")
		return
	}

	res, err := h.svc.ToggleFollow(c.Request.Context(), middleware.ActorFrom(c), userID)
	if err != nil {
		h.fail(c, "toggle follow", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetFollowers returns a user's followers
func (h *UserHandler) GetFollowers(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid user ID")
		return
	}

	users, err := h.svc.Followers(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "fetch followers", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetFollowing returns users that a user is following
func (h *UserHandler) GetFollowing(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid user ID")
		return
	}

	users, err := h.svc.Following(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "fetch following", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// SearchUsers matches active users by username or name
func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.svc.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, "search users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetTab serves one profile tab
func (h *UserHandler) GetTab(tab views.Tab) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := idParam(c, "id")
		if !ok {
			h.badRequest(c, "Invalid user ID")
			return
		}

		posts, err := h.svc.Tab(c.Request.Context(), middleware.ActorFrom(c), userID, tab)
		if err != nil {
			h.fail(c, "fetch "+tab.Path(), err)
			return
		}
		c.JSON(http.StatusOK, posts)
	}
}
