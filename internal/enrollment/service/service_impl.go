package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	dbutil "github.com/railzwaylabs/federation/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "ARS"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Outbox  outbox.Repository
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	outbox  outbox.Repository
	metrics *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("enrollment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		outbox:  p.Outbox,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateMembership(ctx context.Context, req domain.CreateMembershipRequest) (*domain.Membership, error) {
	name := strings.TrimSpace(req.MemberName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	document := strings.TrimSpace(req.DocumentID)
	if document == "" {
		return nil, domain.ErrInvalidDocument
	}
	season := strings.TrimSpace(req.Season)
	if season == "" {
		return nil, domain.ErrInvalidSeason
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	billing, err := s.newBilling(req.FeeAmount, req.Currency)
	if err != nil {
		return nil, err
	}

	var clubID *snowflake.ID
	if req.ClubID != nil && strings.TrimSpace(*req.ClubID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.ClubID))
		if err != nil {
			return nil, domain.ErrNotFound
		}
		club, err := s.repo.FindEntity(ctx, nil, domain.EntityClub, id, false)
		if err != nil {
			return nil, err
		}
		if club == nil {
			return nil, domain.ErrNotFound
		}
		clubID = &id
	}

	now := s.clock.Now(ctx)
	m := &domain.Membership{
		ID:         s.genID.Generate(),
		MemberName: name,
		DocumentID: document,
		Email:      email,
		Phone:      strings.TrimSpace(req.Phone),
		ClubID:     clubID,
		Season:     season,
		Billing:    billing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertMembership(ctx, nil, m); err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	s.log.Info("membership created",
		zap.String("membership_id", m.ID.String()),
		zap.String("season", m.Season),
	)
	return m, nil
}

func (s *Service) CreateEventRegistration(ctx context.Context, req domain.CreateEventRegistrationRequest) (*domain.EventRegistration, error) {
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		return nil, domain.ErrInvalidEvent
	}
	name := strings.TrimSpace(req.ParticipantName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	billing, err := s.newBilling(req.FeeAmount, req.Currency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	reg := &domain.EventRegistration{
		ID:              s.genID.Generate(),
		EventID:         eventID,
		ParticipantName: name,
		Email:           email,
		Phone:           strings.TrimSpace(req.Phone),
		Category:        strings.TrimSpace(req.Category),
		Billing:         billing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertEventRegistration(ctx, nil, reg); err != nil {
		return nil, err
	}

	s.log.Info("event registration created",
		zap.String("registration_id", reg.ID.String()),
		zap.String("event_id", reg.EventID),
	)
	return reg, nil
}

func (s *Service) CreateClub(ctx context.Context, req domain.CreateClubRequest) (*domain.Club, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	season := strings.TrimSpace(req.Season)
	if season == "" {
		return nil, domain.ErrInvalidSeason
	}
	email, err := normalizeEmail(req.ContactEmail)
	if err != nil {
		return nil, err
	}
	billing, err := s.newBilling(req.FeeAmount, req.Currency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	club := &domain.Club{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		ContactEmail: email,
		Phone:        strings.TrimSpace(req.Phone),
		Season:       season,
		Billing:      billing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&domain.Club{}).
		Where("slug = ? AND season = ?", club.Slug, club.Season).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, domain.ErrAlreadyExists
	}

	if err := s.repo.InsertClub(ctx, nil, club); err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	s.log.Info("club affiliation created",
		zap.String("club_id", club.ID.String()),
		zap.String("slug", club.Slug),
	)
	return club, nil
}

func (s *Service) Get(ctx context.Context, entityType string, id string) (*domain.Entity, error) {
	t, err := domain.ParseEntityType(entityType)
	if err != nil {
		return nil, err
	}
	entityID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrNotFound
	}

	entity, err := s.repo.FindEntity(ctx, nil, t, entityID, false)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]*domain.Entity, error) {
	t, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	filter := domain.ListFilter{Limit: req.Limit, Offset: req.Offset}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParsePaymentStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	return s.repo.ListEntities(ctx, nil, t, filter)
}

func (s *Service) ApplyPaymentStatus(ctx context.Context, tx *gorm.DB, change domain.StatusChange) (*domain.Transition, error) {
	if tx == nil {
		return nil, errors.New("payment status must be applied inside a transaction")
	}

	entity, err := s.repo.FindEntity(ctx, tx, change.EntityType, change.EntityID, true)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNotFound
	}

	from := entity.PaymentStatus
	if from == change.To {
		return &domain.Transition{Entity: entity, From: from, To: change.To}, nil
	}
	if !domain.CanTransition(from, change.To) {
		return &domain.Transition{Entity: entity, From: from, To: change.To},
			fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, change.To)
	}

	return s.writeTransition(ctx, tx, entity, change)
}

func (s *Service) OverrideStatus(ctx context.Context, req domain.OverrideRequest) (*domain.Transition, error) {
	t, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	to, err := domain.ParsePaymentStatus(req.Status)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	var transition *domain.Transition
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.repo.FindEntity(ctx, tx, t, id, true)
		if err != nil {
			return err
		}
		if entity == nil {
			return domain.ErrNotFound
		}
		if entity.PaymentStatus == to {
			transition = &domain.Transition{Entity: entity, From: to, To: to}
			return nil
		}

		transition, err = s.writeTransition(ctx, tx, entity, domain.StatusChange{
			EntityType: t,
			EntityID:   id,
			Source:     outbox.SourceAdmin,
			Reason:     reason,
			To:         to,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if transition.Changed {
		s.log.Warn("payment status overridden by admin",
			zap.String("entity_type", string(t)),
			zap.String("entity_id", id.String()),
			zap.String("from", string(transition.From)),
			zap.String("to", string(transition.To)),
			zap.String("reason", reason),
		)
	}
	return transition, nil
}

func (s *Service) SetClubLogo(ctx context.Context, clubID string, logoURL string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(clubID))
	if err != nil {
		return domain.ErrNotFound
	}
	return s.repo.UpdateClubLogo(ctx, nil, id, logoURL, s.clock.Now(ctx))
}

// writeTransition persists the new status and its outbox event on tx.
func (s *Service) writeTransition(ctx context.Context, tx *gorm.DB, entity *domain.Entity, change domain.StatusChange) (*domain.Transition, error) {
	now := s.clock.Now(ctx)
	from := entity.PaymentStatus

	paidAt := entity.PaidAt
	switch change.To {
	case domain.StatusPaid:
		paidAt = &now
	case domain.StatusPending, domain.StatusFailed, domain.StatusExpired, domain.StatusCancelled:
		paidAt = nil
	}

	if err := s.repo.UpdatePaymentStatus(ctx, tx, entity.Type, entity.ID, change.To, paidAt, now); err != nil {
		return nil, err
	}

	if err := s.outbox.Append(ctx, tx, &outbox.Event{
		ID:         s.genID.Generate(),
		ChargeID:   change.ChargeID,
		EntityType: string(entity.Type),
		EntityID:   entity.ID,
		EventType:  outbox.EventTypeFor(string(change.To)),
		FromStatus: string(from),
		ToStatus:   string(change.To),
		Source:     change.Source,
		Provider:   change.Provider,
		Amount:     entity.Amount,
		Currency:   entity.Currency,
		Reason:     change.Reason,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("append payment event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(entity.Type), string(change.To)).Inc()
	}

	entity.PaymentStatus = change.To
	entity.PaidAt = paidAt
	entity.UpdatedAt = now
	return &domain.Transition{Entity: entity, From: from, To: change.To, Changed: true}, nil
}

func (s *Service) newBilling(amount int64, currency string) (domain.Billing, error) {
	if amount <= 0 {
		return domain.Billing{}, domain.ErrInvalidFee
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = defaultCurrency
	}
	if len(code) != 3 {
		return domain.Billing{}, domain.ErrInvalidCurrency
	}
	return domain.Billing{
		FeeAmount:     amount,
		Currency:      code,
		PaymentStatus: domain.StatusPending,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
