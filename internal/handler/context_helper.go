package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vina-edu/academic-api/internal/middleware"
	"github.com/vina-edu/academic-api/internal/models"
)

func actorFromContext(c *gin.Context) *models.Actor {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.ActorClaims)
	if !ok {
		return nil
	}
	return claims.Actor()
}
