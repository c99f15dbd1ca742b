package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vina-edu/academic-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role models.Role, expiry time.Duration) string {
	t.Helper()
	claims := &models.ActorClaims{
		UserID: "usr-1",
		Role:   role,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func protectedRouter(roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", JWT(testSecret))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/resource", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.ActorClaims)
		c.JSON(http.StatusOK, gin.H{"actor": claims.UserID})
	})
	return r
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	protectedRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, models.RoleAdmin, -time.Minute))
	protectedRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAcceptsValidToken(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, models.RoleTeacher, time.Hour))
	protectedRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "usr-1")
}

func TestRBACAllowsListedRole(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, models.RoleAdmin, time.Hour))
	protectedRouter(models.RoleAdmin, models.RoleTeacher).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACForbidsUnlistedRole(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, models.RoleParent, time.Hour))
	protectedRouter(models.RoleAdmin, models.RoleTeacher).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
