package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

const testSecret = "test-secret"

func resolveActor(t *testing.T, secret string, headers map[string]string) *models.ActorClaims {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var captured *models.ActorClaims
	r := gin.New()
	r.Use(Actor(secret))
	r.GET("/", func(c *gin.Context) {
		if value, ok := c.Get(ContextActorKey); ok {
			captured = value.(*models.ActorClaims)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return captured
}

func signToken(t *testing.T, secret, subject, name string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": subject}
	if name != "" {
		claims["name"] = name
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestActorAbsentByDefault(t *testing.T) {
	actor := resolveActor(t, testSecret, nil)
	require.Nil(t, actor)
}

func TestActorFromHeader(t *testing.T) {
	actor := resolveActor(t, testSecret, map[string]string{"X-Actor-ID": "admin-7"})
	require.NotNil(t, actor)
	require.Equal(t, "admin-7", actor.ActorID)
}

func TestActorFromBearerToken(t *testing.T) {
	token := signToken(t, testSecret, "admin-1", "Dana")
	actor := resolveActor(t, testSecret, map[string]string{"Authorization": "Bearer " + token})
	require.NotNil(t, actor)
	require.Equal(t, "admin-1", actor.ActorID)
	require.Equal(t, "Dana", actor.Name)
}

func TestActorTokenWinsOverHeader(t *testing.T) {
	token := signToken(t, testSecret, "admin-1", "")
	actor := resolveActor(t, testSecret, map[string]string{
		"Authorization": "Bearer " + token,
		"X-Actor-ID":    "admin-9",
	})
	require.NotNil(t, actor)
	require.Equal(t, "admin-1", actor.ActorID)
}

func TestActorInvalidTokenFallsBackToHeader(t *testing.T) {
	token := signToken(t, "wrong-secret", "admin-1", "")
	actor := resolveActor(t, testSecret, map[string]string{
		"Authorization": "Bearer " + token,
		"X-Actor-ID":    "admin-9",
	})
	require.NotNil(t, actor)
	require.Equal(t, "admin-9", actor.ActorID)
}

func TestActorRequestNeverRejected(t *testing.T) {
	actor := resolveActor(t, testSecret, map[string]string{"Authorization": "Bearer not-a-token"})
	require.Nil(t, actor)
}
