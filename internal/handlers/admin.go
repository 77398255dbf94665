package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

type AdminHandler struct {
	svc *social.Service
	responder
}

// GetStats returns dashboard totals
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		h.fail(c, "fetch stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SetUserActive activates or deactivates an account
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		h.badRequest(c, "Invalid user ID")
		return
	}

	var input struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "isActive is required")
		return
	}

	status, err := h.svc.SetActive(c.Request.Context(), middleware.ActorFrom(c), userID, *input.IsActive)
	if err != nil {
		h.fail(c, "update user", err)
		return
	}
	c.JSON(http.StatusOK, status)
}
