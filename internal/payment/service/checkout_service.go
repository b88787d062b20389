package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	"github.com/railzwaylabs/federation/internal/payment/adapters"
	"github.com/railzwaylabs/federation/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const expiryBatchSize = 200

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       domain.Repository
	Gateways   gatewaydomain.Service
	Enrollment enrollmentdomain.Service
	Adapters   *adapters.Registry
	Applier    *StatusApplier
	Metrics    *observability.Metrics `optional:"true"`
}

type CheckoutService struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.PaymentConfig
	repo       domain.Repository
	gateways   gatewaydomain.Service
	enrollment enrollmentdomain.Service
	adapters   *adapters.Registry
	applier    *StatusApplier
	metrics    *observability.Metrics
}

func NewCheckoutService(p Params) domain.CheckoutService {
	return &CheckoutService{
		db:         p.DB,
		log:        p.Log.Named("payment.checkout"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Cfg.Payment,
		repo:       p.Repo,
		gateways:   p.Gateways,
		enrollment: p.Enrollment,
		adapters:   p.Adapters,
		applier:    p.Applier,
		metrics:    p.Metrics,
	}
}

func (s *CheckoutService) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if !slices.Contains(gatewaydomain.PaymentMethods, method) {
		return nil, domain.ErrInvalidMethod
	}

	entity, err := s.enrollment.Get(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}
	switch entity.PaymentStatus {
	case enrollmentdomain.StatusPaid, enrollmentdomain.StatusRefunded, enrollmentdomain.StatusChargedBack:
		return nil, domain.ErrAlreadyPaid
	}

	now := s.clock.Now(ctx)
	if result := s.reuseOpenCharge(ctx, entity, method); result != nil {
		return result, nil
	}

	cfg, err := s.gateways.Select(ctx, string(entity.Type), method)
	if err != nil {
		return nil, err
	}
	creds, err := s.gateways.Credentials(cfg)
	if err != nil {
		return nil, err
	}
	adapter, err := s.adapters.NewAdapter(cfg.Provider, domain.AdapterConfig{
		GatewayConfigID: cfg.ID,
		Provider:        cfg.Provider,
		Credentials:     creds,
	})
	if err != nil {
		return nil, err
	}

	chargeID := s.genID.Generate()
	expiresAt := now.Add(s.cfg.ChargeTTL)
	notifyURL, err := s.notificationURL(cfg)
	if err != nil {
		return nil, err
	}

	providerCharge, err := adapter.CreateCharge(ctx, domain.ChargeRequest{
		ChargeID:        chargeID,
		EntityType:      string(entity.Type),
		EntityID:        entity.ID,
		Title:           chargeTitle(entity),
		Amount:          entity.Amount,
		Currency:        entity.Currency,
		Method:          method,
		PayerName:       entity.DisplayName,
		PayerEmail:      entity.Email,
		NotificationURL: notifyURL,
		BackURL:         strings.TrimSpace(req.BackURL),
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		s.log.Error("provider charge creation failed",
			zap.String("provider", cfg.Provider),
			zap.String("entity_type", string(entity.Type)),
			zap.String("entity_id", entity.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	charge := &domain.Charge{
		ID:                chargeID,
		EntityType:        string(entity.Type),
		EntityID:          entity.ID,
		GatewayConfigID:   cfg.ID,
		Provider:          cfg.Provider,
		Method:            method,
		Amount:            entity.Amount,
		Currency:          entity.Currency,
		Status:            enrollmentdomain.StatusPending,
		ProviderReference: providerCharge.Reference,
		CheckoutURL:       providerCharge.CheckoutURL,
		ExpiresAt:         &expiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertCharge(ctx, tx, charge); err != nil {
			return err
		}
		if !enrollmentdomain.CanTransition(entity.PaymentStatus, enrollmentdomain.StatusPending) {
			return nil
		}
		_, err := s.enrollment.ApplyPaymentStatus(ctx, tx, enrollmentdomain.StatusChange{
			EntityType: entity.Type,
			EntityID:   entity.ID,
			ChargeID:   &chargeID,
			Provider:   cfg.Provider,
			Source:     outbox.SourceCheckout,
			To:         enrollmentdomain.StatusPending,
		})
		if errors.Is(err, enrollmentdomain.ErrInvalidTransition) {
			return domain.ErrAlreadyPaid
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CheckoutsTotal.WithLabelValues(cfg.Provider, string(entity.Type)).Inc()
	}
	s.log.Info("checkout created",
		zap.String("charge_id", charge.ID.String()),
		zap.String("provider", charge.Provider),
		zap.String("gateway_config_id", cfg.ID.String()),
		zap.String("entity_type", charge.EntityType),
		zap.String("entity_id", charge.EntityID.String()),
		zap.Int64("amount", charge.Amount),
	)

	return &domain.CheckoutResult{
		Charge:       charge,
		CheckoutURL:  charge.CheckoutURL,
		CheckoutType: cfg.CheckoutType,
		PublicKey:    cfg.PublicKey,
	}, nil
}

// reuseOpenCharge returns the unexpired pending charge for the same entity and
// method, so double-clicks do not open a second preference at the provider.
func (s *CheckoutService) reuseOpenCharge(ctx context.Context, entity *enrollmentdomain.Entity, method string) *domain.CheckoutResult {
	open, err := s.repo.FindOpenCharge(ctx, nil, string(entity.Type), entity.ID, method, s.clock.Now(ctx))
	if err != nil || open == nil {
		return nil
	}
	cfg, err := s.gateways.Get(ctx, open.GatewayConfigID.String())
	if err != nil || !cfg.IsActive {
		return nil
	}
	return &domain.CheckoutResult{
		Charge:       open,
		CheckoutURL:  open.CheckoutURL,
		CheckoutType: cfg.CheckoutType,
		PublicKey:    cfg.PublicKey,
		Reused:       true,
	}
}

func (s *CheckoutService) GetCharge(ctx context.Context, id string) (*domain.Charge, error) {
	chargeID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrChargeNotFound
	}
	charge, err := s.repo.FindCharge(ctx, nil, chargeID, false)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, domain.ErrChargeNotFound
	}
	return charge, nil
}

func (s *CheckoutService) ListCharges(ctx context.Context, req domain.ListChargesRequest) ([]*domain.Charge, error) {
	filter := domain.ChargeFilter{Limit: req.Limit, Offset: req.Offset}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if strings.TrimSpace(req.EntityType) != "" {
		t, err := enrollmentdomain.ParseEntityType(req.EntityType)
		if err != nil {
			return nil, err
		}
		filter.EntityType = string(t)
	}
	if strings.TrimSpace(req.EntityID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
		if err != nil {
			return nil, enrollmentdomain.ErrNotFound
		}
		filter.EntityID = &id
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := enrollmentdomain.ParsePaymentStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = string(status)
	}
	return s.repo.ListCharges(ctx, nil, filter)
}

func (s *CheckoutService) ConfirmManualCharge(ctx context.Context, id string, reason string) (*domain.Charge, error) {
	chargeID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrChargeNotFound
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, enrollmentdomain.ErrReasonRequired
	}

	var charge *domain.Charge
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		charge, err = s.repo.FindCharge(ctx, tx, chargeID, true)
		if err != nil {
			return err
		}
		if charge == nil {
			return domain.ErrChargeNotFound
		}
		if charge.Provider != gatewaydomain.ProviderManual {
			return domain.ErrNotManualCharge
		}
		if charge.Status == enrollmentdomain.StatusPaid {
			return nil
		}
		if charge.Status != enrollmentdomain.StatusPending {
			return domain.ErrChargeNotPending
		}

		_, err := s.applier.Apply(ctx, tx, charge, StatusUpdate{
			To:     enrollmentdomain.StatusPaid,
			Source: outbox.SourceAdmin,
			Reason: reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("manual charge confirmed",
		zap.String("charge_id", charge.ID.String()),
		zap.String("reason", reason),
	)
	return charge, nil
}

func (s *CheckoutService) ExpireStaleCharges(ctx context.Context) (int, error) {
	now := s.clock.Now(ctx)
	stale, err := s.repo.ListExpiredPending(ctx, nil, now, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		changed := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			charge, err := s.repo.FindCharge(ctx, tx, candidate.ID, true)
			if err != nil || charge == nil || charge.Status != enrollmentdomain.StatusPending {
				return err
			}

			charge.Status = enrollmentdomain.StatusExpired
			charge.UpdatedAt = now
			if err := s.repo.SaveCharge(ctx, tx, charge); err != nil {
				return err
			}
			changed = true

			open, err := s.repo.CountOtherCharges(ctx, tx, charge.EntityType, charge.EntityID, string(enrollmentdomain.StatusPending), charge.ID)
			if err != nil || open > 0 {
				return err
			}

			chargeID := charge.ID
			_, err = s.enrollment.ApplyPaymentStatus(ctx, tx, enrollmentdomain.StatusChange{
				EntityType: enrollmentdomain.EntityType(charge.EntityType),
				EntityID:   charge.EntityID,
				ChargeID:   &chargeID,
				Provider:   charge.Provider,
				Source:     outbox.SourceScheduler,
				To:         enrollmentdomain.StatusExpired,
			})
			if errors.Is(err, enrollmentdomain.ErrInvalidTransition) || errors.Is(err, enrollmentdomain.ErrNotFound) {
				return nil
			}
			return err
		})
		if err != nil {
			s.log.Error("failed to expire charge", zap.String("charge_id", candidate.ID.String()), zap.Error(err))
			return expired, err
		}
		if changed {
			expired++
		}
	}

	if expired > 0 {
		s.log.Info("stale charges expired", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *CheckoutService) notificationURL(cfg *gatewaydomain.GatewayConfig) (string, error) {
	base := strings.TrimSpace(cfg.WebhookURL)
	if base == "" {
		base = strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/api/webhooks/payment"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: webhook url: %v", domain.ErrInvalidConfig, err)
	}
	q := u.Query()
	if q.Get("provider") == "" {
		q.Set("provider", cfg.Provider)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func chargeTitle(entity *enrollmentdomain.Entity) string {
	switch entity.Type {
	case enrollmentdomain.EntityMembership:
		return "Membership fee - " + entity.DisplayName
	case enrollmentdomain.EntityEventRegistration:
		return "Event registration - " + entity.DisplayName
	case enrollmentdomain.EntityClub:
		return "Club affiliation - " + entity.DisplayName
	default:
		return entity.DisplayName
	}
}
