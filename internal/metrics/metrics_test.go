package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	before := testutil.ToFloat64(actionsTotal.WithLabelValues("like", "success"))

	Recorder{}.RecordAction("like", "success", 10*time.Millisecond)
	Recorder{}.RecordAction("like", "rejected", time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(actionsTotal.WithLabelValues("like", "success")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(actionsTotal.WithLabelValues("like", "rejected")), 1.0)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/posts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/42", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/posts/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blogsocial_http_requests_total")
}
