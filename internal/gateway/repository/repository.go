package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/gateway/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cfg *domain.GatewayConfig) error {
	return r.conn(db).WithContext(ctx).Create(cfg).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, cfg *domain.GatewayConfig) error {
	return r.conn(db).WithContext(ctx).Save(cfg).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	result := r.conn(db).WithContext(ctx).Where("id = ?", id).Delete(&domain.GatewayConfig{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GatewayConfig, error) {
	var cfg domain.GatewayConfig
	err := r.conn(db).WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.GatewayConfig, error) {
	var configs []*domain.GatewayConfig
	err := r.conn(db).WithContext(ctx).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&configs).Error
	return configs, err
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, provider string) ([]*domain.GatewayConfig, error) {
	q := r.conn(db).WithContext(ctx).Where("is_active = ?", true)
	if p := strings.TrimSpace(provider); p != "" {
		q = q.Where("provider = ?", strings.ToLower(p))
	}

	var configs []*domain.GatewayConfig
	err := q.Order("priority DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&configs).Error
	return configs, err
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error {
	result := r.conn(db).WithContext(ctx).
		Model(&domain.GatewayConfig{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
