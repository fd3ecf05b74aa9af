package handler

import (
	"net/http"

	"backend/internal/mailer"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	mail mailer.Mailer
}

func NewEmailHandler(mail mailer.Mailer) *EmailHandler {
	return &EmailHandler{mail: mail}
}

func (h *EmailHandler) RegisterRoutes(router *gin.RouterGroup) {
	email := router.Group("/api/email", middleware.RequireRole(model.RoleAdmin))
	{
		email.POST("/test", h.SendTest)
	}
}

type testEmailRequest struct {
	To string `json:"to" binding:"required,email"`
}

// SendTest verifies the SMTP configuration by sending a probe message
// @Summary      Send test email
// @Tags         email
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      testEmailRequest  true  "Recipient"
// @Success      200      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/email/test [post]
func (h *EmailHandler) SendTest(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	err := h.mail.Send(c.Request.Context(), mailer.Message{
		To:      req.To,
		Subject: "SMTP configuration test",
		HTML:    "<p>This is a test message confirming the outbound email configuration works.</p>",
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Test email sent"))
}
