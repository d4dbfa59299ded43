package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetLeaseByID(c *gin.Context) {
	agreement, err := s.leaseSvc.GetAgreement(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agreement})
}

func (s *Server) RequestRenewal(c *gin.Context) {
	var req struct {
		AgreementID string `json:"lease_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	renewal, err := s.leaseSvc.RequestRenewal(c.Request.Context(), strings.TrimSpace(req.AgreementID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": renewal})
}

func (s *Server) UpdateRenewalStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	decision, err := s.leaseSvc.UpdateRenewalStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  decision.Status,
	})
}

func (s *Server) ListRenewals(c *gin.Context) {
	landlordID := strings.TrimSpace(c.Query("landlord_id"))

	renewals, err := s.leaseSvc.ListRenewals(c.Request.Context(), landlordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": renewals})
}
