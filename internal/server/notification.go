package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/federation/internal/notification/domain"
)

// ListNotificationConfigs
// GET /api/admin/notifications/configs
func (s *Server) ListNotificationConfigs(c *gin.Context) {
	configs, err := s.notificationSvc.ListConfigs(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, configs, nil)
}

// GetNotificationConfig
// GET /api/admin/notifications/configs/:channel
func (s *Server) GetNotificationConfig(c *gin.Context) {
	cfg, err := s.notificationSvc.GetConfig(c.Request.Context(), c.Param("channel"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, cfg)
}

// UpsertNotificationConfig
// PUT /api/admin/notifications/configs/:channel
func (s *Server) UpsertNotificationConfig(c *gin.Context) {
	var req domain.UpsertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.notificationSvc.UpsertConfig(c.Request.Context(), c.Param("channel"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, cfg)
}

// SendTestNotification sends once and returns the attempt log, failed or not.
// POST /api/admin/notifications/configs/:channel/test
func (s *Server) SendTestNotification(c *gin.Context) {
	var req domain.TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.notificationSvc.SendTest(c.Request.Context(), c.Param("channel"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, entry)
}

// ListNotificationLogs
// GET /api/admin/notifications/logs?channel=email&status=failed&event_id=...
func (s *Server) ListNotificationLogs(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filter := domain.LogFilter{
		Channel: strings.TrimSpace(c.Query("channel")),
		Status:  strings.TrimSpace(c.Query("status")),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	if raw := strings.TrimSpace(c.Query("event_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		filter.EventID = &id
	}

	logs, err := s.notificationSvc.ListLogs(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page.Count = len(logs)
	respondList(c, logs, &page)
}
