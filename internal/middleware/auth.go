package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

const actorKey = "actor"

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user.
func (t *Tokens) Issue(user *models.User) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a signed token and returns its claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user")
	}
	return claims, nil
}

// ActorResolver turns a token's user id into the current identity.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID int) (social.Actor, error)
}

func bearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func abort(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err.Code), gin.H{"error": err.Message, "code": err.Code})
}

func authenticate(c *gin.Context, tokens *Tokens, users ActorResolver) (social.Actor, error) {
	raw := bearer(c)
	if raw == "" {
		return social.Actor{}, apperrors.Unauthorized("Authorization header required")
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return social.Actor{}, apperrors.Unauthorized("Invalid or expired token")
	}
	return users.ResolveActor(c.Request.Context(), claims.UserID)
}

// AuthMiddleware rejects requests without a valid session.
func AuthMiddleware(tokens *Tokens, users ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := authenticate(c, tokens, users)
		if err != nil {
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) {
				appErr = apperrors.Wrap(apperrors.CodeInternal, "Failed to resolve session", err)
			}
			abort(c, appErr)
			return
		}
		SetActor(c, actor)
		c.Next()
	}
}

// OptionalAuth resolves the session when one is presented and otherwise lets
// the request through anonymously.
func OptionalAuth(tokens *Tokens, users ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearer(c) != "" {
			if actor, err := authenticate(c, tokens, users); err == nil {
				SetActor(c, actor)
			}
		}
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsAdmin {
			abort(c, apperrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the request's actor, or the zero Actor when anonymous.
func ActorFrom(c *gin.Context) social.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(social.Actor); ok {
			return actor
		}
	}
	return social.Actor{}
}

// SetActor stores actor on the request.
func SetActor(c *gin.Context, actor social.Actor) {
	c.Set(actorKey, actor)
}
