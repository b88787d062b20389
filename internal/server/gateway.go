package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/federation/internal/gateway/domain"
)

type toggleGatewayRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListGateways
// GET /api/admin/gateways
func (s *Server) ListGateways(c *gin.Context) {
	configs, err := s.gatewaySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, configs, nil)
}

// CreateGateway
// POST /api/admin/gateways
func (s *Server) CreateGateway(c *gin.Context) {
	var req domain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.gatewaySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, cfg)
}

// GetGateway
// GET /api/admin/gateways/:id
func (s *Server) GetGateway(c *gin.Context) {
	cfg, err := s.gatewaySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, cfg)
}

// UpdateGateway
// PATCH /api/admin/gateways/:id
func (s *Server) UpdateGateway(c *gin.Context) {
	var req domain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.gatewaySvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, cfg)
}

// DeleteGateway
// DELETE /api/admin/gateways/:id
func (s *Server) DeleteGateway(c *gin.Context) {
	if err := s.gatewaySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleGateway
// POST /api/admin/gateways/:id/toggle
func (s *Server) ToggleGateway(c *gin.Context) {
	var req toggleGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.gatewaySvc.Toggle(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, cfg)
}
