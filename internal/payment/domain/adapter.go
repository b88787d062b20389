package domain

import (
	"context"
	"net/url"
	"time"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
)

// WebhookNotification is an inbound provider callback with its signing headers.
type WebhookNotification struct {
	Payload   []byte
	Query     url.Values
	Signature string
	Timestamp string
	RequestID string
}

type ChargeRequest struct {
	ChargeID        snowflake.ID
	EntityType      string
	EntityID        snowflake.ID
	Title           string
	Amount          int64
	Currency        string
	Method          string
	PayerName       string
	PayerEmail      string
	NotificationURL string
	BackURL         string
	ExpiresAt       time.Time
}

type ProviderCharge struct {
	Reference   string
	CheckoutURL string
}

// PaymentEvent is a provider payment state, normalised to entity statuses.
type PaymentEvent struct {
	Provider          string
	PaymentID         string
	ExternalReference string
	Status            enrollmentdomain.PaymentStatus
	ProviderStatus    string
	StatusDetail      string
	Amount            int64
	Currency          string
	PaymentType       string
	OccurredAt        time.Time
}

type PaymentAdapter interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ProviderCharge, error)
	// Verify returns ErrInvalidSignature when the notification was not signed
	// with this adapter's secret.
	Verify(ctx context.Context, n WebhookNotification) error
	// Parse extracts the provider payment id. Non-payment topics yield ErrEventIgnored.
	Parse(ctx context.Context, n WebhookNotification) (string, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentEvent, error)
}

type AdapterConfig struct {
	GatewayConfigID snowflake.ID
	Provider        string
	Credentials     gatewaydomain.Credentials
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
