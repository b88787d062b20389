package domain

import "errors"

var (
	ErrNotFound          = errors.New("entity_not_found")
	ErrInvalidEntityType = errors.New("invalid_entity_type")
	ErrInvalidStatus     = errors.New("invalid_payment_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrAlreadyExists     = errors.New("entity_already_exists")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidDocument   = errors.New("invalid_document_id")
	ErrInvalidSeason     = errors.New("invalid_season")
	ErrInvalidEvent      = errors.New("invalid_event_id")
	ErrInvalidFee        = errors.New("invalid_fee")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrReasonRequired    = errors.New("override_reason_required")
)
