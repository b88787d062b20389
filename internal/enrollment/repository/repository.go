package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/enrollment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *repo) InsertMembership(ctx context.Context, db *gorm.DB, m *domain.Membership) error {
	return r.conn(db).WithContext(ctx).Create(m).Error
}

func (r *repo) InsertEventRegistration(ctx context.Context, db *gorm.DB, reg *domain.EventRegistration) error {
	return r.conn(db).WithContext(ctx).Create(reg).Error
}

func (r *repo) InsertClub(ctx context.Context, db *gorm.DB, c *domain.Club) error {
	return r.conn(db).WithContext(ctx).Create(c).Error
}

func (r *repo) FindEntity(ctx context.Context, db *gorm.DB, entityType domain.EntityType, id snowflake.ID, lock bool) (*domain.Entity, error) {
	q := r.conn(db).WithContext(ctx)
	if lock && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var (
		entity *domain.Entity
		err    error
	)
	switch entityType {
	case domain.EntityMembership:
		var m domain.Membership
		if err = q.Where("id = ?", id).First(&m).Error; err == nil {
			entity = m.Entity()
		}
	case domain.EntityEventRegistration:
		var reg domain.EventRegistration
		if err = q.Where("id = ?", id).First(&reg).Error; err == nil {
			entity = reg.Entity()
		}
	case domain.EntityClub:
		var c domain.Club
		if err = q.Where("id = ?", id).First(&c).Error; err == nil {
			entity = c.Entity()
		}
	default:
		return nil, domain.ErrInvalidEntityType
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *repo) ListEntities(ctx context.Context, db *gorm.DB, entityType domain.EntityType, filter domain.ListFilter) ([]*domain.Entity, error) {
	q := r.conn(db).WithContext(ctx)
	if filter.Status != nil {
		q = q.Where("payment_status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	q = q.Order("created_at DESC").Order("id DESC")

	var out []*domain.Entity
	switch entityType {
	case domain.EntityMembership:
		var rows []domain.Membership
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			out = append(out, rows[i].Entity())
		}
	case domain.EntityEventRegistration:
		var rows []domain.EventRegistration
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			out = append(out, rows[i].Entity())
		}
	case domain.EntityClub:
		var rows []domain.Club
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			out = append(out, rows[i].Entity())
		}
	default:
		return nil, domain.ErrInvalidEntityType
	}
	return out, nil
}

func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, entityType domain.EntityType, id snowflake.ID, status domain.PaymentStatus, paidAt *time.Time, now time.Time) error {
	table, err := domain.TableFor(entityType)
	if err != nil {
		return err
	}

	result := r.conn(db).WithContext(ctx).
		Table(table).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_status": status,
			"paid_at":        paidAt,
			"updated_at":     now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) UpdateClubLogo(ctx context.Context, db *gorm.DB, id snowflake.ID, logoURL string, now time.Time) error {
	result := r.conn(db).WithContext(ctx).
		Model(&domain.Club{}).
		Where("id = ?", id).
		Updates(map[string]any{"logo_url": logoURL, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
