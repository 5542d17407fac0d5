package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProtectedRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireJWT(m), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": Subject(c)})
	})
	return r
}

func TestRequireJWT_MissingHeader(t *testing.T) {
	r := setupProtectedRouter(newTestManager())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireJWT_MalformedHeader(t *testing.T) {
	r := setupProtectedRouter(newTestManager())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireJWT_InvalidToken(t *testing.T) {
	r := setupProtectedRouter(newTestManager())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireJWT_ValidToken(t *testing.T) {
	m := newTestManager()
	r := setupProtectedRouter(m)

	token, err := m.GenerateToken("security_console")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "security_console")
}

func TestRequireJWT_RejectsTokenFromOtherSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager("other-secret", time.Hour, "security_console", "letmein123")
	r := setupProtectedRouter(m)

	token, err := other.GenerateToken("security_console")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
