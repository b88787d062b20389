package domain

import "context"

type CreateRequest struct {
	Provider       string   `json:"provider"`
	DisplayName    string   `json:"display_name"`
	IsActive       bool     `json:"is_active"`
	Priority       int      `json:"priority"`
	AllowedMethods []string `json:"allowed_methods"`
	EntityTypes    []string `json:"entity_types"`
	CheckoutType   string   `json:"checkout_type"`
	WebhookURL     string   `json:"webhook_url"`
	PublicKey      string   `json:"public_key"`
	AccessToken    string   `json:"access_token"`
	WebhookSecret  string   `json:"webhook_secret"`
}

// UpdateRequest leaves nil fields unchanged. Empty secret strings keep the stored secret.
type UpdateRequest struct {
	DisplayName    *string  `json:"display_name"`
	Priority       *int     `json:"priority"`
	AllowedMethods []string `json:"allowed_methods"`
	EntityTypes    []string `json:"entity_types"`
	CheckoutType   *string  `json:"checkout_type"`
	WebhookURL     *string  `json:"webhook_url"`
	PublicKey      *string  `json:"public_key"`
	AccessToken    *string  `json:"access_token"`
	WebhookSecret  *string  `json:"webhook_secret"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*GatewayConfig, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*GatewayConfig, error)
	Get(ctx context.Context, id string) (*GatewayConfig, error)
	List(ctx context.Context) ([]*GatewayConfig, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string, active bool) (*GatewayConfig, error)

	ListActive(ctx context.Context, provider string) ([]*GatewayConfig, error)
	// Select returns the highest-priority active config that serves both the
	// entity type and the payment method. There is no cross-provider fallback.
	Select(ctx context.Context, entityType, method string) (*GatewayConfig, error)
	Credentials(cfg *GatewayConfig) (Credentials, error)
}
