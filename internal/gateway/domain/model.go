package domain

import (
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ProviderMercadoPago = "mercadopago"
	ProviderManual      = "manual"
)

const (
	CheckoutRedirect = "redirect"
	CheckoutEmbedded = "embedded"
	CheckoutOffline  = "offline"
)

var PaymentMethods = []string{"card", "debit_card", "ticket", "bank_transfer", "account_money", "cash"}

// Secret keys stored inside the encrypted secrets blob.
const (
	SecretAccessToken   = "access_token"
	SecretWebhookSecret = "webhook_secret"
)

// GatewayConfig is one configured payment gateway. Secrets are sealed by the
// vault and never serialised; only the public key is exposed.
type GatewayConfig struct {
	ID               snowflake.ID                `json:"id" gorm:"primaryKey"`
	Provider         string                      `json:"provider" gorm:"type:text;not null"`
	DisplayName      string                      `json:"display_name" gorm:"type:text;not null"`
	IsActive         bool                        `json:"is_active" gorm:"not null"`
	Priority         int                         `json:"priority" gorm:"not null"`
	AllowedMethods   datatypes.JSONSlice[string] `json:"allowed_methods" gorm:"not null"`
	EntityTypes      datatypes.JSONSlice[string] `json:"entity_types" gorm:"not null"`
	CheckoutType     string                      `json:"checkout_type" gorm:"type:text;not null"`
	WebhookURL       string                      `json:"webhook_url,omitempty" gorm:"type:text"`
	PublicKey        string                      `json:"public_key,omitempty" gorm:"type:text"`
	EncryptedSecrets []byte                      `json:"-"`
	CreatedAt        time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time                   `json:"updated_at" gorm:"not null"`

	HasAccessToken   bool `json:"has_access_token" gorm:"-"`
	HasWebhookSecret bool `json:"has_webhook_secret" gorm:"-"`
}

func (GatewayConfig) TableName() string { return "gateway_configs" }

// Supports reports whether the config may serve this entity type and method.
func (c *GatewayConfig) Supports(entityType, method string) bool {
	return slices.Contains(c.EntityTypes, entityType) && slices.Contains(c.AllowedMethods, method)
}

// Credentials are the decrypted secrets of a GatewayConfig.
type Credentials struct {
	AccessToken   string
	PublicKey     string
	WebhookSecret string
	WebhookURL    string
}
