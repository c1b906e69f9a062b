package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newLimitedEngine(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/linked-role", rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/linked-role", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Disabled(t *testing.T) {
	require.Nil(t, NewRateLimiter(0))

	r := newLimitedEngine(nil)
	for range 50 {
		require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.1").Code)
	}
}

func TestRateLimiter_ThrottlesPerClient(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(60)
	rl.now = func() time.Time { return now }
	r := newLimitedEngine(rl)

	// burst is a tenth of the per-minute budget
	for range 6 {
		require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.1").Code)
	}

	w := hit(r, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))

	require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.2").Code)

	now = now.Add(time.Second)
	require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.1").Code)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(60)
	rl.now = func() time.Time { return now }
	r := newLimitedEngine(rl)

	hit(r, "10.0.0.1")
	hit(r, "10.0.0.2")
	require.Equal(t, 2, rl.Clients())

	now = now.Add(idleWindow + time.Second)
	hit(r, "10.0.0.3")
	require.Equal(t, 1, rl.Clients())
}
