package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"credit_engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withUser(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	service.InitJWT("mw-secret")
	token, err := service.GenerateJWT(17, time.Minute)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":17}`, w.Body.String())
}

func TestAdmin(t *testing.T) {
	isAdmin := func(id int64) bool { return id == 1 }

	for _, tc := range []struct {
		user int64
		want int
	}{
		{1, http.StatusOK},
		{2, http.StatusForbidden},
	} {
		r := gin.New()
		r.GET("/admin", withUser(tc.user), Admin(isAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
		w := serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, tc.want, w.Code, "user %d", tc.user)
	}
}

func TestUserRateLimitWithoutRedis(t *testing.T) {
	resetLocalLimits()

	r := gin.New()
	r.POST("/charge", withUser(3), UserRateLimit("charge", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/charge", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodPost, "/charge", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// other users have their own budget
	r2 := gin.New()
	r2.POST("/charge", withUser(4), UserRateLimit("charge", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(r2, httptest.NewRequest(http.MethodPost, "/charge", nil)).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c2a52-3c1e-4f5e-9a43-0c2b2b8f6d10")
	w = serve(r, req)
	assert.Equal(t, "6f1c2a52-3c1e-4f5e-9a43-0c2b2b8f6d10", w.Header().Get(RequestIDHeader))
}
