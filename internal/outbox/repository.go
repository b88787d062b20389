package outbox

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Append(ctx context.Context, db *gorm.DB, event *Event) error
	ListPending(ctx context.Context, db *gorm.DB, limit int) ([]Event, error)
	MarkDispatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	ListByEntity(ctx context.Context, db *gorm.DB, entityType string, entityID snowflake.ID) ([]Event, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, event *Event) error {
	return r.conn(db).WithContext(ctx).Create(event).Error
}

// ListPending returns events not yet dispatched in id order. An event that
// commits after a higher id was already dispatched is still returned.
func (r *repo) ListPending(ctx context.Context, db *gorm.DB, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	err := r.conn(db).WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *repo) MarkDispatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return r.conn(db).WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND dispatched_at IS NULL", id).
		Update("dispatched_at", at).Error
}

func (r *repo) ListByEntity(ctx context.Context, db *gorm.DB, entityType string, entityID snowflake.ID) ([]Event, error) {
	var events []Event
	err := r.conn(db).WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
