package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/federation/internal/storage"
)

type presignResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadLogo stores a club logo in the public bucket. When club_id is given
// the club's logo URL is updated too.
// POST /api/admin/assets/logos (multipart: file, club_id)
func (s *Server) UploadLogo(c *gin.Context) {
	if s.assets == nil {
		AbortWithError(c, storage.ErrStorageUnavailable)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	obj, err := s.assets.UploadLogo(ctx, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if clubID := strings.TrimSpace(c.PostForm("club_id")); clubID != "" {
		if err := s.enrollmentSvc.SetClubLogo(ctx, clubID, obj.URL); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	respondCreated(c, obj)
}

// PresignDocument returns a time-limited download URL for a private document.
// ttl accepts a duration ("30m") or seconds.
// GET /api/admin/assets/documents/presign?key=...&ttl=15m
func (s *Server) PresignDocument(c *gin.Context) {
	if s.assets == nil {
		AbortWithError(c, storage.ErrStorageUnavailable)
		return
	}

	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		AbortWithError(c, storage.ErrInvalidObjectKey)
		return
	}
	ttl, err := parseTTL(c.Query("ttl"))
	if err != nil {
		AbortWithError(c, storage.ErrInvalidTTL)
		return
	}

	url, err := s.assets.PresignDocument(c.Request.Context(), key, ttl)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	effective := ttl
	if effective == 0 {
		effective = storage.DefaultPresignTTL
	}
	respondData(c, presignResponse{Key: key, URL: url, ExpiresAt: time.Now().UTC().Add(effective)})
}

func parseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
