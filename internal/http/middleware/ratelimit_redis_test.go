package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"idle_tapper/internal/auth"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitFallsBackToLocalBucket(t *testing.T) {
	UseRedis(nil)

	r := gin.New()
	r.GET("/test", RedisRateLimit(2, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, get(r, "/test", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/test", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/test", nil).Code)

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, get(r, "/test", map[string]string{"X-Forwarded-For": "10.0.0.9"}).Code)
}

func TestLocalLimiterRefills(t *testing.T) {
	l := newLocalLimiter(2, 2*time.Second)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.allow("a", now))
	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now))
	// one token per second
	assert.True(t, l.allow("a", now.Add(time.Second)))
	assert.False(t, l.allow("a", now.Add(time.Second)))
}

func TestLocalLimiterForgetsIdleClients(t *testing.T) {
	l := newLocalLimiter(1, time.Second)
	now := time.Unix(1_700_000_000, 0)
	l.allow("a", now)
	l.allow("b", now.Add(10*time.Second))
	assert.Len(t, l.visitors, 1)
}

func TestJWT(t *testing.T) {
	a := auth.New("secret", "bot", false)
	r := gin.New()
	r.GET("/me", JWT(a), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetInt64(UserIDKey)})
	})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", map[string]string{"Authorization": "Bearer nope"}).Code)

	token, err := a.IssueToken(42)
	require.NoError(t, err)
	w := get(r, "/me", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": 42}`, w.Body.String())
}

func TestTapRateLimitPerPlayer(t *testing.T) {
	UseRedis(nil)

	r := gin.New()
	r.GET("/tap", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Query("id"), 10, 64)
		if id > 0 {
			c.Set(UserIDKey, id)
		}
	}, TapRateLimit(1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/tap", nil).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/tap?id=1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/tap?id=1", nil).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/tap?id=2", nil).Code)
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
	require.NoError(t, client.Ping(context.Background()).Err())
	UseRedis(client)
	t.Cleanup(func() {
		UseRedis(nil)
		client.Close()
	})

	// unique window so reruns don't share a key
	w := time.Duration(2+time.Now().UnixNano()%1000) * time.Second
	limit := 2

	r := gin.New()
	r.GET("/test", RedisRateLimit(limit, w), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	for i := 0; i < limit; i++ {
		res, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}

	res, err := http.Get(srv.URL + "/test")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}
