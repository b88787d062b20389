package domain

import "errors"

var (
	ErrNotFound             = errors.New("gateway_config_not_found")
	ErrNoGatewayAvailable   = errors.New("no_gateway_available")
	ErrInvalidProvider      = errors.New("invalid_provider")
	ErrInvalidDisplayName   = errors.New("invalid_display_name")
	ErrInvalidMethod        = errors.New("invalid_payment_method")
	ErrInvalidEntityType    = errors.New("invalid_entity_type")
	ErrInvalidCheckoutType  = errors.New("invalid_checkout_type")
	ErrInvalidWebhookURL    = errors.New("invalid_webhook_url")
	ErrMissingAccessToken   = errors.New("missing_access_token")
	ErrCredentialsCorrupted = errors.New("gateway_credentials_unreadable")
)
