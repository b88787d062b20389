package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	notificationdomain "github.com/railzwaylabs/federation/internal/notification/domain"
	paymentdomain "github.com/railzwaylabs/federation/internal/payment/domain"
	"github.com/railzwaylabs/federation/internal/storage"
	"go.uber.org/zap"
)

const (
	ErrorTypeInvalidRequest = "invalid_request"
	ErrorTypeUnauthorized   = "unauthorized"
	ErrorTypeForbidden      = "forbidden"
	ErrorTypeNotFound       = "not_found"
	ErrorTypeConflict       = "conflict"
	ErrorTypeProvider       = "provider_error"
	ErrorTypeInternal       = "internal_error"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrAdminDisabled  = errors.New("admin_api_disabled")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrPayloadTooBig  = errors.New("payload_too_large")
)

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	kind   string
}

var errorMappings = []errorMapping{
	{ErrInvalidRequest, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{ErrPayloadTooBig, http.StatusRequestEntityTooLarge, ErrorTypeInvalidRequest},
	{ErrUnauthorized, http.StatusUnauthorized, ErrorTypeUnauthorized},
	{ErrAdminDisabled, http.StatusForbidden, ErrorTypeForbidden},

	// webhook intake
	{paymentdomain.ErrMissingWebhookHeaders, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{paymentdomain.ErrInvalidPayload, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{paymentdomain.ErrInvalidProvider, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{paymentdomain.ErrStaleTimestamp, http.StatusUnauthorized, ErrorTypeUnauthorized},
	{paymentdomain.ErrInvalidSignature, http.StatusUnauthorized, ErrorTypeUnauthorized},
	{paymentdomain.ErrProviderNotFound, http.StatusNotFound, ErrorTypeNotFound},
	{paymentdomain.ErrPaymentNotFound, http.StatusNotFound, ErrorTypeNotFound},

	// checkout and charges
	{paymentdomain.ErrInvalidMethod, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{paymentdomain.ErrUnsupportedMethod, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{paymentdomain.ErrChargeNotFound, http.StatusNotFound, ErrorTypeNotFound},
	{paymentdomain.ErrAlreadyPaid, http.StatusConflict, ErrorTypeConflict},
	{paymentdomain.ErrChargeNotPending, http.StatusConflict, ErrorTypeConflict},
	{paymentdomain.ErrNotManualCharge, http.StatusConflict, ErrorTypeConflict},
	{paymentdomain.ErrProviderRequest, http.StatusInternalServerError, ErrorTypeProvider},

	// gateways
	{gatewaydomain.ErrNotFound, http.StatusNotFound, ErrorTypeNotFound},
	{gatewaydomain.ErrNoGatewayAvailable, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrInvalidProvider, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrInvalidDisplayName, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrInvalidMethod, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrInvalidEntityType, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrInvalidCheckoutType, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrInvalidWebhookURL, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{gatewaydomain.ErrMissingAccessToken, http.StatusBadRequest, ErrorTypeInvalidRequest},

	// entities
	{enrollmentdomain.ErrNotFound, http.StatusNotFound, ErrorTypeNotFound},
	{enrollmentdomain.ErrAlreadyExists, http.StatusConflict, ErrorTypeConflict},
	{enrollmentdomain.ErrInvalidTransition, http.StatusConflict, ErrorTypeConflict},
	{enrollmentdomain.ErrInvalidEntityType, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidStatus, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidName, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidEmail, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidDocument, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidSeason, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidEvent, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidFee, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrInvalidCurrency, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{enrollmentdomain.ErrReasonRequired, http.StatusBadRequest, ErrorTypeInvalidRequest},

	// notifications
	{notificationdomain.ErrUnknownChannel, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{notificationdomain.ErrInvalidMaxRetries, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{notificationdomain.ErrInvalidSettings, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{notificationdomain.ErrMissingRecipient, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{notificationdomain.ErrChannelNotConfigured, http.StatusNotFound, ErrorTypeNotFound},

	// assets
	{storage.ErrInvalidContentType, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{storage.ErrObjectTooLarge, http.StatusRequestEntityTooLarge, ErrorTypeInvalidRequest},
	{storage.ErrInvalidObjectKey, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{storage.ErrInvalidTTL, http.StatusBadRequest, ErrorTypeInvalidRequest},
	{storage.ErrStorageUnavailable, http.StatusInternalServerError, ErrorTypeInternal},
}

func classify(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.kind, true
		}
	}
	return http.StatusInternalServerError, ErrorTypeInternal, false
}

// AbortWithError writes the JSON error body for err and stops the chain.
// Unknown errors are logged with the request id and hidden from the client.
func AbortWithError(c *gin.Context, err error) {
	status, kind, known := classify(err)
	message := err.Error()
	if !known {
		message = "internal error"
		requestLogger(c, zap.NewNop()).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Type: kind, Message: message}})
}

func invalidRequestError() error {
	return ErrInvalidRequest
}
