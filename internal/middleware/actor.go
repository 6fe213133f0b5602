package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

// ContextActorKey is the gin context key storing the acting operator.
const ContextActorKey = "currentActor"

const actorHeader = "X-Actor-ID"

// Actor resolves the operator performing a request, for audit attribution
// only. A signed bearer token wins over the plain header; with neither,
// no actor is attached and mutations are recorded as system-initiated.
// The engine never rejects a request here, authentication is the caller's
// concern.
func Actor(tokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := actorFromToken(c.GetHeader("Authorization"), tokenSecret); claims != nil {
			c.Set(ContextActorKey, claims)
			c.Next()
			return
		}
		if actorID := strings.TrimSpace(c.GetHeader(actorHeader)); actorID != "" {
			c.Set(ContextActorKey, &models.ActorClaims{ActorID: actorID})
		}
		c.Next()
	}
}

func actorFromToken(header, secret string) *models.ActorClaims {
	if header == "" || secret == "" {
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil
	}
	actor := &models.ActorClaims{ActorID: subject}
	if name, ok := claims["name"].(string); ok {
		actor.Name = name
	}
	return actor
}
