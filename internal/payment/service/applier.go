package service

import (
	"context"
	"errors"

	"github.com/railzwaylabs/federation/internal/clock"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusUpdate is a status reported for a charge by a provider, an admin or
// the scheduler.
type StatusUpdate struct {
	To                enrollmentdomain.PaymentStatus
	ProviderPaymentID string
	Source            string
	Reason            string
}

type StatusResult struct {
	ChargeChanged bool
	Transition    *enrollmentdomain.Transition
}

// StatusApplier moves a charge and its entity to a new status inside one
// transaction. The entity only follows a charge that actually moved, and
// never leaves paid while another of its charges is still paid.
type StatusApplier struct {
	repo       domain.Repository
	enrollment enrollmentdomain.Service
	clock      clock.Clock
	log        *zap.Logger
}

func NewStatusApplier(repo domain.Repository, enrollment enrollmentdomain.Service, clk clock.Clock, log *zap.Logger) *StatusApplier {
	return &StatusApplier{
		repo:       repo,
		enrollment: enrollment,
		clock:      clk,
		log:        log.Named("payment.status"),
	}
}

// Apply expects charge to have been loaded with a row lock on tx.
func (a *StatusApplier) Apply(ctx context.Context, tx *gorm.DB, charge *domain.Charge, update StatusUpdate) (*StatusResult, error) {
	now := a.clock.Now(ctx)
	result := &StatusResult{}

	dirty := false
	if update.ProviderPaymentID != "" && charge.ProviderPaymentID != update.ProviderPaymentID {
		charge.ProviderPaymentID = update.ProviderPaymentID
		dirty = true
	}
	if charge.Status != update.To && enrollmentdomain.CanTransition(charge.Status, update.To) {
		charge.Status = update.To
		if update.To == enrollmentdomain.StatusPaid {
			charge.PaidAt = &now
		}
		result.ChargeChanged = true
		dirty = true
	} else if charge.Status != update.To {
		a.log.Info("charge transition skipped",
			zap.String("charge_id", charge.ID.String()),
			zap.String("from", string(charge.Status)),
			zap.String("to", string(update.To)),
		)
	}
	if dirty {
		charge.UpdatedAt = now
		if err := a.repo.SaveCharge(ctx, tx, charge); err != nil {
			return nil, err
		}
	}

	if !result.ChargeChanged {
		return result, nil
	}
	held, err := a.heldByOtherCharge(ctx, tx, charge, update.To)
	if err != nil {
		return nil, err
	}
	if held {
		a.log.Info("entity transition held by another charge",
			zap.String("charge_id", charge.ID.String()),
			zap.String("entity_type", charge.EntityType),
			zap.String("entity_id", charge.EntityID.String()),
			zap.String("to", string(update.To)),
		)
		return result, nil
	}

	chargeID := charge.ID
	transition, err := a.enrollment.ApplyPaymentStatus(ctx, tx, enrollmentdomain.StatusChange{
		EntityType: enrollmentdomain.EntityType(charge.EntityType),
		EntityID:   charge.EntityID,
		ChargeID:   &chargeID,
		Provider:   charge.Provider,
		Source:     update.Source,
		Reason:     update.Reason,
		To:         update.To,
	})
	switch {
	case errors.Is(err, enrollmentdomain.ErrInvalidTransition):
		a.log.Info("entity transition skipped",
			zap.String("entity_type", charge.EntityType),
			zap.String("entity_id", charge.EntityID.String()),
			zap.String("to", string(update.To)),
			zap.Error(err),
		)
		result.Transition = transition
	case err != nil:
		return nil, err
	default:
		result.Transition = transition
	}
	return result, nil
}

// heldByOtherCharge reports whether another charge of the same entity still
// backs its current status: a paid charge blocks a refund or chargeback, a
// pending one blocks a failure.
func (a *StatusApplier) heldByOtherCharge(ctx context.Context, tx *gorm.DB, charge *domain.Charge, to enrollmentdomain.PaymentStatus) (bool, error) {
	var holding enrollmentdomain.PaymentStatus
	switch to {
	case enrollmentdomain.StatusRefunded, enrollmentdomain.StatusChargedBack:
		holding = enrollmentdomain.StatusPaid
	case enrollmentdomain.StatusFailed, enrollmentdomain.StatusCancelled, enrollmentdomain.StatusExpired:
		holding = enrollmentdomain.StatusPending
	default:
		return false, nil
	}
	count, err := a.repo.CountOtherCharges(ctx, tx, charge.EntityType, charge.EntityID, string(holding), charge.ID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
