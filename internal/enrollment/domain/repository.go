package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status *PaymentStatus
	Limit  int
	Offset int
}

// Repository methods accept an optional transaction; nil means the default connection.
type Repository interface {
	InsertMembership(ctx context.Context, db *gorm.DB, m *Membership) error
	InsertEventRegistration(ctx context.Context, db *gorm.DB, r *EventRegistration) error
	InsertClub(ctx context.Context, db *gorm.DB, c *Club) error

	// FindEntity returns nil, nil when no row exists. lock takes a row lock on postgres.
	FindEntity(ctx context.Context, db *gorm.DB, entityType EntityType, id snowflake.ID, lock bool) (*Entity, error)
	ListEntities(ctx context.Context, db *gorm.DB, entityType EntityType, filter ListFilter) ([]*Entity, error)
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, entityType EntityType, id snowflake.ID, status PaymentStatus, paidAt *time.Time, now time.Time) error
	UpdateClubLogo(ctx context.Context, db *gorm.DB, id snowflake.ID, logoURL string, now time.Time) error
}
