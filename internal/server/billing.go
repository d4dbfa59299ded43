package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/upkyp/upkyp/internal/billing/domain"
)

func (s *Server) UpsertBilling(c *gin.Context) {
	var req billingdomain.UpsertBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.Upsert(c.Request.Context(), billingdomain.UpsertBillRequest{
		UnitID:            strings.TrimSpace(req.UnitID),
		AgreementID:       strings.TrimSpace(req.AgreementID),
		Total:             req.Total,
		AdditionalCharges: req.AdditionalCharges,
		Discounts:         req.Discounts,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := "Billing updated successfully."
	if resp.Created {
		message = "Billing created successfully."
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"billing_id": resp.BillingID,
		"message":    message,
	})
}

func (s *Server) GetBillingByID(c *gin.Context) {
	detail, err := s.billingSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) ListBillings(c *gin.Context) {
	unitID := strings.TrimSpace(c.Query("unit_id"))
	if unitID == "" {
		AbortWithError(c, newValidationError("unit_id", "invalid_unit_id", "invalid value"))
		return
	}

	bills, err := s.billingSvc.ListByUnit(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bills})
}
