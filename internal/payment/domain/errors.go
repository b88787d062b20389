package domain

import "errors"

var (
	ErrMissingWebhookHeaders = errors.New("missing_webhook_headers")
	ErrStaleTimestamp        = errors.New("stale_webhook_timestamp")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidConfig         = errors.New("invalid_gateway_config")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrUnsupported           = errors.New("operation_not_supported")
	ErrUnsupportedMethod     = errors.New("unsupported_payment_method")
	ErrPaymentNotFound       = errors.New("provider_payment_not_found")
	ErrProviderRequest       = errors.New("provider_request_failed")

	ErrChargeNotFound   = errors.New("charge_not_found")
	ErrAlreadyPaid      = errors.New("entity_already_paid")
	ErrInvalidMethod    = errors.New("invalid_payment_method")
	ErrChargeNotPending = errors.New("charge_not_pending")
	ErrNotManualCharge  = errors.New("charge_not_manual")
)
