package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func locked(q *gorm.DB, lock bool) *gorm.DB {
	if lock && q.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func first[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repo) InsertCharge(ctx context.Context, db *gorm.DB, charge *domain.Charge) error {
	return r.conn(db).WithContext(ctx).Create(charge).Error
}

func (r *repo) SaveCharge(ctx context.Context, db *gorm.DB, charge *domain.Charge) error {
	return r.conn(db).WithContext(ctx).Save(charge).Error
}

func (r *repo) FindCharge(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*domain.Charge, error) {
	q := locked(r.conn(db).WithContext(ctx), lock).Where("id = ?", id)
	return first[domain.Charge](q)
}

func (r *repo) FindChargeByProviderPayment(ctx context.Context, db *gorm.DB, provider, paymentID string, lock bool) (*domain.Charge, error) {
	q := locked(r.conn(db).WithContext(ctx), lock).
		Where("provider = ? AND provider_payment_id = ?", provider, paymentID).
		Order("created_at DESC")
	return first[domain.Charge](q)
}

func (r *repo) FindOpenCharge(ctx context.Context, db *gorm.DB, entityType string, entityID snowflake.ID, method string, now time.Time) (*domain.Charge, error) {
	q := r.conn(db).WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND method = ? AND status = ?",
			entityType, entityID, method, enrollmentdomain.StatusPending).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Order("created_at DESC")
	return first[domain.Charge](q)
}

func (r *repo) ListCharges(ctx context.Context, db *gorm.DB, filter domain.ChargeFilter) ([]*domain.Charge, error) {
	q := r.conn(db).WithContext(ctx)
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		q = q.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var charges []*domain.Charge
	err := q.Order("created_at DESC").Order("id DESC").Find(&charges).Error
	return charges, err
}

func (r *repo) ListExpiredPending(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.Charge, error) {
	var charges []*domain.Charge
	err := r.conn(db).WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enrollmentdomain.StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&charges).Error
	return charges, err
}

func (r *repo) CountOtherCharges(ctx context.Context, db *gorm.DB, entityType string, entityID snowflake.ID, status string, chargeID snowflake.ID) (int64, error) {
	var count int64
	err := r.conn(db).WithContext(ctx).
		Model(&domain.Charge{}).
		Where("entity_type = ? AND entity_id = ? AND status = ? AND id <> ?", entityType, entityID, status, chargeID).
		Count(&count).Error
	return count, err
}

func (r *repo) InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) error {
	return r.conn(db).WithContext(ctx).Create(event).Error
}

func (r *repo) SaveWebhookEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) error {
	return r.conn(db).WithContext(ctx).Save(event).Error
}

func (r *repo) FindWebhookEvent(ctx context.Context, db *gorm.DB, provider, requestID string) (*domain.WebhookEvent, error) {
	q := r.conn(db).WithContext(ctx).Where("provider = ? AND request_id = ?", provider, requestID)
	return first[domain.WebhookEvent](q)
}

func (r *repo) DeleteWebhookEventsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := r.conn(db).WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&domain.WebhookEvent{})
	return result.RowsAffected, result.Error
}
