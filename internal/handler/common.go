package handler

import (
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/apperr"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// fail writes the error through the standard envelope, mapping the error kind
// to an HTTP status.
func fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// actorFrom reads the authenticated caller set by the auth middleware.
func actorFrom(c *gin.Context) service.Actor {
	userID, _ := c.Get(middleware.CtxUserID)
	userEmail, _ := c.Get(middleware.CtxUserEmail)
	actor := service.Actor{}
	if id, ok := userID.(string); ok {
		actor.ID = id
	}
	if email, ok := userEmail.(string); ok {
		actor.Email = email
	}
	return actor
}
