package repository

import (
	"context"
	"errors"

	"github.com/railzwaylabs/federation/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return r.db
}

func (r *repo) ListConfigs(ctx context.Context, db *gorm.DB) ([]*domain.NotificationConfig, error) {
	var items []*domain.NotificationConfig
	err := r.conn(db).WithContext(ctx).Order("channel ASC").Find(&items).Error
	return items, err
}

func (r *repo) FindConfig(ctx context.Context, db *gorm.DB, channel string) (*domain.NotificationConfig, error) {
	var cfg domain.NotificationConfig
	err := r.conn(db).WithContext(ctx).Where("channel = ?", channel).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repo) SaveConfig(ctx context.Context, db *gorm.DB, cfg *domain.NotificationConfig) error {
	return r.conn(db).WithContext(ctx).Save(cfg).Error
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, log *domain.NotificationLog) error {
	return r.conn(db).WithContext(ctx).Create(log).Error
}

func (r *repo) ListLogs(ctx context.Context, db *gorm.DB, filter domain.LogFilter) ([]*domain.NotificationLog, error) {
	q := r.conn(db).WithContext(ctx).Model(&domain.NotificationLog{})
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.EventID != nil {
		q = q.Where("event_id = ?", *filter.EventID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var items []*domain.NotificationLog
	err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error
	return items, err
}
