package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
)

func (s *Server) RegisterPushSubscription(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id"`
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.notificationSvc.RegisterSubscription(c.Request.Context(), notificationdomain.SubscriptionInput{
		UserID:   strings.TrimSpace(req.UserID),
		Endpoint: strings.TrimSpace(req.Endpoint),
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListNotifications(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))

	notifications, err := s.notificationSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))

	if err := s.notificationSvc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
