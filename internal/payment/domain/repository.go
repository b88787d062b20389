package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ChargeFilter struct {
	EntityType string
	EntityID   *snowflake.ID
	Status     string
	Limit      int
	Offset     int
}

// Repository methods accept an optional transaction; nil means the default
// connection. Finders return nil, nil when nothing matches.
type Repository interface {
	InsertCharge(ctx context.Context, db *gorm.DB, charge *Charge) error
	SaveCharge(ctx context.Context, db *gorm.DB, charge *Charge) error
	FindCharge(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*Charge, error)
	FindChargeByProviderPayment(ctx context.Context, db *gorm.DB, provider, paymentID string, lock bool) (*Charge, error)
	FindOpenCharge(ctx context.Context, db *gorm.DB, entityType string, entityID snowflake.ID, method string, now time.Time) (*Charge, error)
	ListCharges(ctx context.Context, db *gorm.DB, filter ChargeFilter) ([]*Charge, error)
	ListExpiredPending(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Charge, error)
	// CountOtherCharges counts the entity's charges in status, excluding chargeID.
	CountOtherCharges(ctx context.Context, db *gorm.DB, entityType string, entityID snowflake.ID, status string, chargeID snowflake.ID) (int64, error)

	InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	SaveWebhookEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	FindWebhookEvent(ctx context.Context, db *gorm.DB, provider, requestID string) (*WebhookEvent, error)
	DeleteWebhookEventsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}
