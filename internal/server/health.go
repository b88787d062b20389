package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	checkOK   = "ok"
	checkDown = "down"
)

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health
// GET /health
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: checkOK, Checks: map[string]string{}}

	resp.Checks["database"] = checkOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		resp.Checks["database"] = checkDown
		resp.Status = "degraded"
	}

	if s.redis != nil {
		resp.Checks["redis"] = checkOK
		if err := s.redis.Ping(ctx).Err(); err != nil {
			resp.Checks["redis"] = checkDown
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != checkOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
