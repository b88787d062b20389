package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"gorm.io/datatypes"
)

// Charge is one checkout attempt against a gateway for one entity.
type Charge struct {
	ID                snowflake.ID                   `json:"id" gorm:"primaryKey"`
	EntityType        string                         `json:"entity_type" gorm:"type:text;not null;index:idx_charges_entity"`
	EntityID          snowflake.ID                   `json:"entity_id" gorm:"not null;index:idx_charges_entity"`
	GatewayConfigID   snowflake.ID                   `json:"gateway_config_id" gorm:"not null"`
	Provider          string                         `json:"provider" gorm:"type:text;not null"`
	Method            string                         `json:"method" gorm:"type:text;not null"`
	Amount            int64                          `json:"amount" gorm:"not null"`
	Currency          string                         `json:"currency" gorm:"type:text;not null"`
	Status            enrollmentdomain.PaymentStatus `json:"status" gorm:"type:text;not null"`
	ProviderReference string                         `json:"provider_reference,omitempty" gorm:"type:text"`
	ProviderPaymentID string                         `json:"provider_payment_id,omitempty" gorm:"type:text"`
	CheckoutURL       string                         `json:"checkout_url,omitempty" gorm:"type:text"`
	ExpiresAt         *time.Time                     `json:"expires_at,omitempty"`
	PaidAt            *time.Time                     `json:"paid_at,omitempty"`
	CreatedAt         time.Time                      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time                      `json:"updated_at" gorm:"not null"`
}

func (Charge) TableName() string { return "charges" }

const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
)

// WebhookEvent is the durable replay record of one provider delivery.
type WebhookEvent struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider    string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_provider_request"`
	RequestID   string         `json:"request_id" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_provider_request"`
	PaymentID   string         `json:"payment_id,omitempty" gorm:"type:text"`
	ChargeID    *snowflake.ID  `json:"charge_id,omitempty"`
	Outcome     string         `json:"outcome" gorm:"type:text;not null"`
	Error       string         `json:"error,omitempty" gorm:"type:text"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	ReceivedAt  time.Time      `json:"received_at" gorm:"not null;index"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
