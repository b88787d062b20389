package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cfg *GatewayConfig) error
	Update(ctx context.Context, db *gorm.DB, cfg *GatewayConfig) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GatewayConfig, error)
	List(ctx context.Context, db *gorm.DB) ([]*GatewayConfig, error)
	// ListActive returns active configs ordered by priority DESC, created_at ASC.
	// An empty provider matches every provider.
	ListActive(ctx context.Context, db *gorm.DB, provider string) ([]*GatewayConfig, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
}
