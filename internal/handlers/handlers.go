package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/middleware"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Comment *CommentHandler
	User    *UserHandler
	Admin   *AdminHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *social.Service, tokens *middleware.Tokens, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	r := responder{log: log}

	return &Handler{
		Auth:    &AuthHandler{svc: svc, tokens: tokens, responder: r},
		Post:    &PostHandler{svc: svc, responder: r},
		Comment: &CommentHandler{svc: svc, responder: r},
		User:    &UserHandler{svc: svc, responder: r},
		Admin:   &AdminHandler{svc: svc, responder: r},
	}
}

type responder struct {
	log *slog.Logger
}

// fail renders err as {"error", "code"} with the status of its code.
// Uncoded errors are logged and reported as internal.
func (r responder) fail(c *gin.Context, op string, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.CodeInternal, "Internal server error", err)
	}
	if appErr.Code == apperrors.CodeInternal {
		r.log.Error(op+" failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op, "code": appErr.Code})
		return
	}
	c.JSON(apperrors.HTTPStatus(appErr.Code), gin.H{"error": appErr.Message, "code": appErr.Code})
}

func (r responder) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": apperrors.CodeValidation})
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
