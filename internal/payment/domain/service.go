package domain

import (
	"context"
	"net/http"
	"net/url"
)

type CheckoutRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Method     string `json:"method"`
	BackURL    string `json:"back_url"`
}

type CheckoutResult struct {
	Charge       *Charge `json:"charge"`
	CheckoutURL  string  `json:"checkout_url,omitempty"`
	CheckoutType string  `json:"checkout_type"`
	PublicKey    string  `json:"public_key,omitempty"`
	Reused       bool    `json:"reused"`
}

type ListChargesRequest struct {
	EntityType string
	EntityID   string
	Status     string
	Limit      int
	Offset     int
}

type CheckoutService interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	GetCharge(ctx context.Context, id string) (*Charge, error)
	ListCharges(ctx context.Context, req ListChargesRequest) ([]*Charge, error)
	// ConfirmManualCharge marks an offline charge paid after an admin has
	// reconciled the transfer.
	ConfirmManualCharge(ctx context.Context, id string, reason string) (*Charge, error)
	// ExpireStaleCharges moves pending charges past their expiry to expired.
	ExpireStaleCharges(ctx context.Context) (int, error)
}

// WebhookResult is what the intake endpoint reports back to the provider.
type WebhookResult struct {
	Outcome  string `json:"status"`
	ChargeID string `json:"charge_id,omitempty"`
}

type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header, query url.Values) (*WebhookResult, error)
	PurgeWebhookEvents(ctx context.Context) (int64, error)
}
