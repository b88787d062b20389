package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/federation/internal/payment/domain"
)

type confirmChargeRequest struct {
	Reason string `json:"reason"`
}

// CreateCheckout
// POST /api/checkout
func (s *Server) CreateCheckout(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.checkoutSvc.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.Reused {
		respondData(c, result)
		return
	}
	respondCreated(c, result)
}

// GetCharge
// GET /api/charges/:id
func (s *Server) GetCharge(c *gin.Context) {
	charge, err := s.checkoutSvc.GetCharge(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, charge)
}

// ListCharges
// GET /api/admin/charges?entity_type=membership&entity_id=...&status=pending
func (s *Server) ListCharges(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	charges, err := s.checkoutSvc.ListCharges(c.Request.Context(), domain.ListChargesRequest{
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   strings.TrimSpace(c.Query("entity_id")),
		Status:     strings.TrimSpace(c.Query("status")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page.Count = len(charges)
	respondList(c, charges, &page)
}

// ConfirmCharge marks an offline charge paid.
// POST /api/admin/charges/:id/confirm
func (s *Server) ConfirmCharge(c *gin.Context) {
	var req confirmChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	charge, err := s.checkoutSvc.ConfirmManualCharge(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, charge)
}
