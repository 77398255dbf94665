package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver map[int]social.Actor

func (s stubResolver) ResolveActor(_ context.Context, id int) (social.Actor, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return social.Actor{}, apperrors.Unauthorized("Account is deactivated")
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": ActorFrom(c).ID})
	})
	r.GET("/", handlers...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue(&models.User{ID: 7, Username: "alice", IsAdmin: true})
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.Error(t, err)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Issue(&models.User{ID: 1})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(raw)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	users := stubResolver{1: {ID: 1, Username: "alice"}}
	r := newRouter(AuthMiddleware(tokens, users))

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	w = get(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	gone, err := tokens.Issue(&models.User{ID: 2})
	require.NoError(t, err)
	w = get(r, gone)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "deactivated users are rejected")

	ok, err := tokens.Issue(&models.User{ID: 1})
	require.NoError(t, err)
	w = get(r, ok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	r := newRouter(OptionalAuth(tokens, stubResolver{1: {ID: 1}}))

	w := get(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0}`, w.Body.String())

	w = get(r, "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0}`, w.Body.String())

	raw, err := tokens.Issue(&models.User{ID: 1})
	require.NoError(t, err)
	w = get(r, raw)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestAdminOnly(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	users := stubResolver{1: {ID: 1}, 2: {ID: 2, IsAdmin: true}}
	r := newRouter(AuthMiddleware(tokens, users), AdminOnly())

	plain, _ := tokens.Issue(&models.User{ID: 1})
	admin, _ := tokens.Issue(&models.User{ID: 2})

	assert.Equal(t, http.StatusForbidden, get(r, plain).Code)
	assert.Equal(t, http.StatusOK, get(r, admin).Code)
}

func TestAdminOnlyReadsActorFromContext(t *testing.T) {
	for _, tt := range []struct {
		actor social.Actor
		want  bool
	}{
		{social.Actor{}, true},
		{social.Actor{ID: 3}, true},
		{social.Actor{ID: 4, IsAdmin: true}, false},
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if tt.actor.ID != 0 {
			SetActor(c, tt.actor)
		}
		assert.Equal(t, tt.actor, ActorFrom(c))
		AdminOnly()(c)
		assert.Equal(t, tt.want, c.IsAborted(), "actor %+v", tt.actor)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	r := newRouter(RateLimit(limiter))

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "").Code)

	assert.Equal(t, 1, limiter.size())
	time.Sleep(2 * time.Millisecond)
	limiter.Sweep(time.Millisecond)
	assert.Equal(t, 0, limiter.size())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	r := newRouter(RequestLogger(log))

	get(r, "")
	assert.Contains(t, buf.String(), "status=200")
	assert.Contains(t, buf.String(), "path=/")
}
