package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireLoop/internal/auth"
)

func newAuthService(t *testing.T) *auth.AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	svc, err := auth.NewAuthService(privPEM, pubPEM, time.Minute, time.Hour)
	require.NoError(t, err)
	return svc
}

func echoIdentity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.GetUint(UserIDKey),
		"role":       c.GetString(RoleKey),
		"interview_token": c.GetString(InterviewTokenKey),
	})
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newAuthService(t)
	r := gin.New()
	r.GET("/me", AuthMiddleware(svc), echoIdentity)

	pair, err := svc.GenerateTokenPair(5, "company", false)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":5`)
	assert.Contains(t, w.Body.String(), `"role":"company"`)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Basic abc"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + pair.RefreshToken}).Code)
}

func TestParticipantMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newAuthService(t)
	r := gin.New()
	r.POST("/answer", ParticipantMiddleware(svc), echoIdentity)

	w := do(r, http.MethodPost, "/answer", map[string]string{InterviewTokenHeader: "tok-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"interview_token":"tok-1"`)

	pair, err := svc.GenerateTokenPair(9, "candidate", false)
	require.NoError(t, err)
	w = do(r, http.MethodPost, "/answer", map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":9`)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/answer", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/answer", map[string]string{"Authorization": "Bearer junk"}).Code)
}

func TestRequireRoleAndPasswordGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	withRole := func(role string, mustChange bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(RoleKey, role)
			c.Set(MustChangePasswordKey, mustChange)
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	r := gin.New()
	r.GET("/company", withRole("company", false), RequireRole("company"), ok)
	r.GET("/candidate", withRole("candidate", false), RequireRole("company"), ok)
	r.GET("/admin", withRole("admin", false), RequireRole("company"), ok)
	r.GET("/gated", withRole("company", true), RequirePasswordChanged(), ok)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/company", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/candidate", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/admin", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/gated", nil).Code)
}

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetCorrelationID(c)) })

	w := do(r, http.MethodGet, "/", map[string]string{CorrelationIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(CorrelationIDHeader))

	w = do(r, http.MethodGet, "/", map[string]string{CorrelationIDHeader: strings.Repeat("x", 100)})
	assert.Len(t, w.Body.String(), 36)
}

func TestInternalSecretMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", InternalSecretMiddleware("s3"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics", map[string]string{"X-Internal-Secret": "s3"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/metrics", map[string]string{"X-Internal-Secret": "no"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/metrics?secret=s3", nil).Code)
}
