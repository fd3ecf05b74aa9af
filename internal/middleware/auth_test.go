package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(GetJWTSecret())
	require.NoError(t, err)
	return token
}

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestVerifyAbsentCredential(t *testing.T) {
	c, _ := testContext(t)

	identity, err := Verify(c)
	assert.Nil(t, identity)
	assert.NoError(t, err, "absent credential is not an error")
}

func TestVerifyValidHeaderToken(t *testing.T) {
	c, _ := testContext(t)
	token := signToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "admin@example.com",
		"role":  model.RoleAdmin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	c.Request.Header.Set("Authorization", "Bearer "+token)

	identity, err := Verify(c)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "admin@example.com", identity.Email)
	assert.Equal(t, model.RoleAdmin, identity.Role)
}

func TestVerifyHeaderBeatsCookie(t *testing.T) {
	c, _ := testContext(t)

	headerToken := signToken(t, jwt.MapClaims{
		"sub": "header-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	cookieToken := signToken(t, jwt.MapClaims{
		"sub": "cookie-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	c.Request.Header.Set("Authorization", "Bearer "+headerToken)
	c.Request.AddCookie(&http.Cookie{Name: "access_token", Value: cookieToken})

	identity, err := Verify(c)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "header-user", identity.UserID)
}

func TestVerifyMalformedHeaderDoesNotFallBackToCookie(t *testing.T) {
	c, _ := testContext(t)

	cookieToken := signToken(t, jwt.MapClaims{
		"sub": "cookie-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	c.Request.Header.Set("Authorization", "not-a-valid-credential")
	c.Request.AddCookie(&http.Cookie{Name: "access_token", Value: cookieToken})

	identity, err := Verify(c)
	assert.Nil(t, identity)
	assert.Error(t, err, "a presented header credential must be verified, not ignored")
}

func TestVerifyCookieFallback(t *testing.T) {
	c, _ := testContext(t)
	token := signToken(t, jwt.MapClaims{
		"sub": "cookie-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	c.Request.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	identity, err := Verify(c)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "cookie-user", identity.UserID)
}

func TestVerifyRoleDefaultsToUser(t *testing.T) {
	c, _ := testContext(t)
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	c.Request.Header.Set("Authorization", "Bearer "+token)

	identity, err := Verify(c)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, model.RoleUser, identity.Role)
}

func TestVerifyExpiredToken(t *testing.T) {
	c, _ := testContext(t)
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	c.Request.Header.Set("Authorization", "Bearer "+token)

	identity, err := Verify(c)
	assert.Nil(t, identity)
	assert.Error(t, err)
}

func TestRequireRoleForbidsWrongRole(t *testing.T) {
	router := gin.New()
	router.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signToken(t, jwt.MapClaims{
		"sub":  "user-1",
		"role": model.RoleUser,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	router := gin.New()
	router.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthSetsContext(t *testing.T) {
	router := gin.New()
	router.GET("/me", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserID),
			"role":    c.GetString(CtxUserRole),
		})
	})

	token := signToken(t, jwt.MapClaims{
		"sub":  "user-9",
		"role": model.RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-9")
	assert.Contains(t, w.Body.String(), model.RoleAdmin)
}
