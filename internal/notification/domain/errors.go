package domain

import "errors"

var (
	ErrUnknownChannel       = errors.New("unknown_notification_channel")
	ErrInvalidMaxRetries    = errors.New("invalid_max_retries")
	ErrInvalidSettings      = errors.New("invalid_notification_settings")
	ErrMissingRecipient     = errors.New("missing_recipient")
	ErrChannelNotConfigured = errors.New("channel_not_configured")
	ErrSettingsCorrupted    = errors.New("notification_settings_corrupted")
	ErrDeliveryFailed       = errors.New("notification_delivery_failed")
)
