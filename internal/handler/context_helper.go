package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-retake-api/internal/middleware"
	"github.com/noah-isme/academy-retake-api/internal/models"
)

func actorFromContext(c *gin.Context) *models.ActorClaims {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return nil
	}
	actor, ok := value.(*models.ActorClaims)
	if !ok {
		return nil
	}
	return actor
}
