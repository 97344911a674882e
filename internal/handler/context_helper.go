package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendx-api/internal/middleware"
	"github.com/noah-isme/attendx-api/internal/models"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
	"github.com/noah-isme/attendx-api/pkg/response"
)

// actorFromContext resolves the authenticated actor, writing a 401 when absent.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
