package domain

import (
	"strings"
)

type EntityType string

const (
	EntityMembership        EntityType = "membership"
	EntityEventRegistration EntityType = "event_registration"
	EntityClub              EntityType = "club"
)

var EntityTypes = []EntityType{EntityMembership, EntityEventRegistration, EntityClub}

func ParseEntityType(raw string) (EntityType, error) {
	switch t := EntityType(strings.ToLower(strings.TrimSpace(raw))); t {
	case EntityMembership, EntityEventRegistration, EntityClub:
		return t, nil
	default:
		return "", ErrInvalidEntityType
	}
}

type PaymentStatus string

const (
	StatusPending     PaymentStatus = "pending"
	StatusPaid        PaymentStatus = "paid"
	StatusFailed      PaymentStatus = "failed"
	StatusCancelled   PaymentStatus = "cancelled"
	StatusExpired     PaymentStatus = "expired"
	StatusRefunded    PaymentStatus = "refunded"
	StatusChargedBack PaymentStatus = "charged_back"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch s := PaymentStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled, StatusExpired, StatusRefunded, StatusChargedBack:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Terminal statuses never change again outside an admin override.
func (s PaymentStatus) Terminal() bool {
	return s == StatusRefunded || s == StatusChargedBack
}

// allowedFrom lists, per target status, the statuses it may be entered from.
var allowedFrom = map[PaymentStatus][]PaymentStatus{
	StatusPaid:        {StatusPending, StatusFailed, StatusExpired, StatusCancelled},
	StatusPending:     {StatusFailed, StatusExpired, StatusCancelled},
	StatusFailed:      {StatusPending},
	StatusExpired:     {StatusPending},
	StatusCancelled:   {StatusPending},
	StatusRefunded:    {StatusPaid},
	StatusChargedBack: {StatusPaid},
}

// CanTransition reports whether a provider-driven change from -> to is allowed.
// A paid entity only moves forward to refunded or charged_back, so late or
// duplicated provider notifications cannot regress it.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}
