package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/upkyp/upkyp/internal/subscription/domain"
)

func (s *Server) RecordPaymentStatus(c *gin.Context) {
	var req subscriptiondomain.PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.RecordPaymentStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := "Payment status recorded."
	if resp.Replayed {
		message = "Payment status already recorded."
	}
	c.JSON(http.StatusOK, gin.H{
		"message":                message,
		"requestReferenceNumber": resp.ReferenceNumber,
		"status":                 resp.PaymentStatus,
	})
}

func (s *Server) GetActiveSubscription(c *gin.Context) {
	landlordID := strings.TrimSpace(c.Query("landlord_id"))

	active, err := s.subscriptionSvc.GetActive(c.Request.Context(), landlordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": active})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	landlordID := strings.TrimSpace(c.Query("landlord_id"))

	subscriptions, err := s.subscriptionSvc.List(c.Request.Context(), landlordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subscriptions})
}
