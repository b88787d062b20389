package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/federation/internal/enrollment/domain"
)

type overrideStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// CreateMembership
// POST /api/memberships
func (s *Server) CreateMembership(c *gin.Context) {
	var req domain.CreateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	membership, err := s.enrollmentSvc.CreateMembership(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, membership)
}

// CreateEventRegistration
// POST /api/registrations/events
func (s *Server) CreateEventRegistration(c *gin.Context) {
	var req domain.CreateEventRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registration, err := s.enrollmentSvc.CreateEventRegistration(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, registration)
}

// CreateClub
// POST /api/clubs
func (s *Server) CreateClub(c *gin.Context) {
	var req domain.CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	club, err := s.enrollmentSvc.CreateClub(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, club)
}

// GetEntity
// GET /api/entities/:type/:id
func (s *Server) GetEntity(c *gin.Context) {
	entity, err := s.enrollmentSvc.Get(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, entity)
}

// ListEntities
// GET /api/admin/entities/:type?status=paid
func (s *Server) ListEntities(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entities, err := s.enrollmentSvc.List(c.Request.Context(), domain.ListRequest{
		EntityType: c.Param("type"),
		Status:     strings.TrimSpace(c.Query("status")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page.Count = len(entities)
	respondList(c, entities, &page)
}

// OverrideEntityStatus
// POST /api/admin/entities/:type/:id/status
func (s *Server) OverrideEntityStatus(c *gin.Context) {
	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	transition, err := s.enrollmentSvc.OverrideStatus(c.Request.Context(), domain.OverrideRequest{
		EntityType: c.Param("type"),
		EntityID:   c.Param("id"),
		Status:     req.Status,
		Reason:     req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, transition)
}
