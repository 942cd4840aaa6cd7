package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func localTestConfig(rate float64, burst int) RateLimiterConfig {
	cfg := DefaultRateLimiterConfig()
	cfg.Rate = rate
	cfg.Burst = burst
	return cfg
}

func TestLocalRateLimiter_Allow(t *testing.T) {
	t.Run("allows within burst", func(t *testing.T) {
		rl := NewLocalRateLimiter(localTestConfig(1, 5))
		defer rl.Stop()

		for i := 0; i < 5; i++ {
			assert.True(t, rl.Allow("client-1"), "request %d should be allowed", i)
		}
	})

	t.Run("rejects when bucket empty", func(t *testing.T) {
		rl := NewLocalRateLimiter(localTestConfig(0.001, 2))
		defer rl.Stop()

		assert.True(t, rl.Allow("client-1"))
		assert.True(t, rl.Allow("client-1"))
		assert.False(t, rl.Allow("client-1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewLocalRateLimiter(localTestConfig(0.001, 1))
		defer rl.Stop()

		assert.True(t, rl.Allow("client-1"))
		assert.False(t, rl.Allow("client-1"))
		assert.True(t, rl.Allow("client-2"))
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := NewLocalRateLimiter(localTestConfig(100, 1))
		defer rl.Stop()

		assert.True(t, rl.Allow("client-1"))
		assert.False(t, rl.Allow("client-1"))

		time.Sleep(50 * time.Millisecond)

		assert.True(t, rl.Allow("client-1"))
	})

	t.Run("tracks stats", func(t *testing.T) {
		rl := NewLocalRateLimiter(localTestConfig(0.001, 1))
		defer rl.Stop()

		rl.Allow("client-1")
		rl.Allow("client-1")

		allowed, rejected := rl.GetStats()
		assert.Equal(t, uint64(1), allowed)
		assert.Equal(t, uint64(1), rejected)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	setupRouter := func(cfg RateLimiterConfig, userID string) *gin.Engine {
		router := gin.New()
		if userID != "" {
			router.Use(func(c *gin.Context) {
				c.Set(ContextKeyUserID, userID)
				c.Next()
			})
		}
		router.Use(RateLimiter(cfg))
		router.POST("/checkin", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		return router
	}

	t.Run("allows within burst", func(t *testing.T) {
		router := setupRouter(localTestConfig(0.001, 3), "user-1")

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
		}
	})

	t.Run("rejects with flat shape when exhausted", func(t *testing.T) {
		router := setupRouter(localTestConfig(0.001, 1), "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, "/checkin", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("separate users have separate buckets", func(t *testing.T) {
		cfg := localTestConfig(0.001, 1)
		limiter := RateLimiter(cfg)

		buildRouter := func(userID string) *gin.Engine {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set(ContextKeyUserID, userID)
				c.Next()
			})
			router.Use(limiter)
			router.POST("/checkin", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"success": true})
			})
			return router
		}

		routerA := buildRouter("user-a")
		routerB := buildRouter("user-b")

		w := httptest.NewRecorder()
		routerA.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkin", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		routerA.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkin", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		w = httptest.NewRecorder()
		routerB.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkin", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		router := setupRouter(localTestConfig(10, 5), "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("falls back to client IP without user", func(t *testing.T) {
		router := setupRouter(localTestConfig(0.001, 1), "")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, "/checkin", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}
