package handlers

import (
	"net/http/httptest"
	"testing"

	"idle_tapper/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := getUserID(c)
	assert.False(t, ok)

	c.Set(middleware.UserIDKey, int64(42))
	id, ok := getUserID(c)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	c.Set(middleware.UserIDKey, "42")
	_, ok = getUserID(c)
	assert.False(t, ok)
}
