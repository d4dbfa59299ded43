package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	pdcdomain "github.com/upkyp/upkyp/internal/pdc/domain"
)

func (s *Server) CreatePDC(c *gin.Context) {
	var req struct {
		AgreementID string          `json:"lease_id"`
		CheckNumber string          `json:"check_number"`
		Amount      decimal.Decimal `json:"amount"`
		DueDate     string          `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.DueDate))
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid value"))
		return
	}

	check, err := s.pdcSvc.Create(c.Request.Context(), pdcdomain.CreateCheckRequest{
		AgreementID: strings.TrimSpace(req.AgreementID),
		CheckNumber: req.CheckNumber,
		Amount:      req.Amount,
		DueDate:     dueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": check})
}

func (s *Server) UpdatePDCStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	check, err := s.pdcSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "PDC status updated.",
		"pdc_id":  check.PDCID,
		"status":  check.Status,
	})
}

func (s *Server) GetPDCByID(c *gin.Context) {
	check, err := s.pdcSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": check})
}

func (s *Server) ListPDCs(c *gin.Context) {
	agreementID := strings.TrimSpace(c.Query("lease_id"))

	checks, err := s.pdcSvc.ListByAgreement(c.Request.Context(), agreementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": checks})
}
