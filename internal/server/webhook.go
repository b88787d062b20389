package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// HandlePaymentWebhook
// POST /api/webhooks/payment?provider=mercadopago
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(body) > maxWebhookBody {
		AbortWithError(c, ErrPayloadTooBig)
		return
	}

	result, err := s.webhookSvc.IngestWebhook(
		c.Request.Context(),
		c.Query("provider"),
		body,
		c.Request.Header,
		c.Request.URL.Query(),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
