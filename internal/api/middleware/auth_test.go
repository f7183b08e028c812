package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printbridge/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T, password string) (*gin.Engine, *AuthMiddleware) {
	t.Helper()

	cfg := config.AuthConfig{Secret: "test-secret", TokenTTL: time.Hour}
	if password != "" {
		hash, err := HashPassword(password)
		require.NoError(t, err)
		cfg.PasswordHash = hash
	}

	auth, err := NewAuthMiddleware(cfg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(CORS())
	r.POST("/api/login", auth.LoginHandler)
	r.GET("/api/auth/status", auth.StatusHandler)
	protected := r.Group("/api", auth.RequireAuth())
	protected.GET("/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, auth
}

func do(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_DisabledWithoutHash(t *testing.T) {
	r, auth := newAuthRouter(t, "")
	assert.False(t, auth.Enabled())

	w := do(r, http.MethodGet, "/api/queue", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/auth/status", "", nil)
	assert.JSONEq(t, `{"authenticated":true,"auth_required":false}`, w.Body.String())
}

func TestAuth_LoginFlow(t *testing.T) {
	r, _ := newAuthRouter(t, "hunter22")

	w := do(r, http.MethodGet, "/api/queue", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/login", `{"password":"wrong-one"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/login", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/login", `{"password":"hunter22"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "printbridge_auth", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	w = do(r, http.MethodGet, "/api/queue", "", http.Header{"Cookie": {cookies[0].Name + "=" + cookies[0].Value}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/queue", "", http.Header{"Authorization": {"Bearer " + cookies[0].Value}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/queue", "", http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	_, auth := newAuthRouter(t, "hunter22")

	issued := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	token, err := auth.generateToken()
	require.NoError(t, err)

	_, err = auth.validateToken(token)
	require.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = auth.validateToken(token)
	assert.Error(t, err)
}

func TestAuth_ForeignSecret(t *testing.T) {
	_, auth := newAuthRouter(t, "hunter22")
	token, err := auth.generateToken()
	require.NoError(t, err)

	other, err := NewAuthMiddleware(config.AuthConfig{PasswordHash: "x"})
	require.NoError(t, err)
	_, err = other.validateToken(token)
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)

	hash, err := HashPassword("long enough")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))
}

func TestCORS(t *testing.T) {
	r, _ := newAuthRouter(t, "")

	w := do(r, http.MethodOptions, "/api/queue", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
