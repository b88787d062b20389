package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	"github.com/railzwaylabs/federation/internal/payment/adapters"
	"github.com/railzwaylabs/federation/internal/payment/domain"
	paymentservice "github.com/railzwaylabs/federation/internal/payment/service"
	dbutil "github.com/railzwaylabs/federation/pkg/db"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	HeaderSignature = "x-signature"
	HeaderTimestamp = "x-timestamp"
	HeaderRequestID = "x-request-id"
)

var errDuplicateDelivery = errors.New("duplicate_delivery")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     domain.Repository
	Gateways gatewaydomain.Service
	Adapters *adapters.Registry
	Applier  *paymentservice.StatusApplier
	Redis    *redis.Client          `optional:"true"`
	Metrics  *observability.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	gateways      gatewaydomain.Service
	adapters      *adapters.Registry
	applier       *paymentservice.StatusApplier
	replay        *replayGuard
	metrics       *observability.Metrics
	tolerance     time.Duration
	retentionDays int
}

func NewService(p Params) domain.WebhookService {
	tolerance := p.Cfg.Payment.WebhookTolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	replayTTL := p.Cfg.Payment.ReplayTTL
	if replayTTL <= 0 {
		replayTTL = 24 * time.Hour
	}

	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.webhook"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		gateways:      p.Gateways,
		adapters:      p.Adapters,
		applier:       p.Applier,
		replay:        &replayGuard{client: p.Redis, ttl: replayTTL},
		metrics:       p.Metrics,
		tolerance:     tolerance,
		retentionDays: p.Cfg.WebhookRetentionDays,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header, query url.Values) (*domain.WebhookResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	result, err := s.ingest(ctx, provider, payload, headers, query)

	outcome := "failed"
	switch {
	case err == nil:
		outcome = result.Outcome
	case errors.Is(err, domain.ErrMissingWebhookHeaders), errors.Is(err, domain.ErrStaleTimestamp), errors.Is(err, domain.ErrInvalidSignature):
		outcome = "rejected"
	}
	if s.metrics != nil {
		s.metrics.WebhooksTotal.WithLabelValues(s.providerLabel(provider), outcome).Inc()
	}
	return result, err
}

// providerLabel keeps the metric cardinality bounded by the registry.
func (s *Service) providerLabel(provider string) string {
	if s.adapters != nil && s.adapters.ProviderExists(provider) {
		return provider
	}
	return "unknown"
}

func (s *Service) ingest(ctx context.Context, provider string, payload []byte, headers http.Header, query url.Values) (*domain.WebhookResult, error) {
	if provider == "" {
		return nil, domain.ErrInvalidProvider
	}

	n := domain.WebhookNotification{
		Payload:   payload,
		Query:     query,
		Signature: strings.TrimSpace(headers.Get(HeaderSignature)),
		Timestamp: strings.TrimSpace(headers.Get(HeaderTimestamp)),
		RequestID: strings.TrimSpace(headers.Get(HeaderRequestID)),
	}
	if n.Signature == "" || n.Timestamp == "" || n.RequestID == "" {
		return nil, domain.ErrMissingWebhookHeaders
	}
	if err := s.checkTimestamp(ctx, n.Timestamp); err != nil {
		s.log.Warn("webhook timestamp rejected",
			zap.String("provider", provider),
			zap.String("request_id", n.RequestID),
			zap.String("timestamp", n.Timestamp),
		)
		return nil, err
	}

	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return nil, domain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return nil, domain.ErrInvalidPayload
	}

	configs, err := s.gateways.ListActive(ctx, provider)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, domain.ErrProviderNotFound
	}

	s.log.Info("processing webhook",
		zap.String("provider", provider),
		zap.String("request_id", n.RequestID),
		zap.Int("payload_size", len(payload)),
		zap.Int("config_count", len(configs)),
	)

	adapter, err := s.matchAdapter(ctx, provider, n, configs)
	if err != nil {
		s.log.Warn("webhook verification failed",
			zap.String("provider", provider),
			zap.String("request_id", n.RequestID),
			zap.Error(err),
		)
		return nil, err
	}

	return s.process(ctx, provider, adapter, n)
}

// matchAdapter finds the active config whose secret signed the notification.
func (s *Service) matchAdapter(ctx context.Context, provider string, n domain.WebhookNotification, configs []*gatewaydomain.GatewayConfig) (domain.PaymentAdapter, error) {
	var configErr error
	for _, cfg := range configs {
		creds, err := s.gateways.Credentials(cfg)
		if err != nil {
			configErr = err
			continue
		}
		adapter, err := s.adapters.NewAdapter(provider, domain.AdapterConfig{
			GatewayConfigID: cfg.ID,
			Provider:        provider,
			Credentials:     creds,
		})
		if err != nil {
			configErr = err
			continue
		}

		if err := adapter.Verify(ctx, n); err != nil {
			if errors.Is(err, domain.ErrInvalidSignature) {
				continue
			}
			return nil, err
		}
		return adapter, nil
	}

	if configErr != nil && len(configs) == 1 {
		return nil, configErr
	}
	return nil, domain.ErrInvalidSignature
}

func (s *Service) process(ctx context.Context, provider string, adapter domain.PaymentAdapter, n domain.WebhookNotification) (*domain.WebhookResult, error) {
	claimed, err := s.replay.claim(ctx, provider, n.RequestID)
	if err != nil {
		s.log.Warn("replay guard unavailable, relying on database", zap.Error(err))
		claimed = true
	}
	if !claimed {
		return s.duplicate(provider, n.RequestID), nil
	}

	existing, err := s.repo.FindWebhookEvent(ctx, nil, provider, n.RequestID)
	if err != nil {
		s.replay.release(ctx, provider, n.RequestID)
		return nil, err
	}
	if existing != nil {
		return s.duplicate(provider, n.RequestID), nil
	}

	now := s.clock.Now(ctx)
	record := &domain.WebhookEvent{
		ID:         s.genID.Generate(),
		Provider:   provider,
		RequestID:  n.RequestID,
		Outcome:    domain.OutcomeProcessed,
		Payload:    datatypes.JSON(maskPayload(n.Payload)),
		ReceivedAt: now,
	}

	paymentID, err := adapter.Parse(ctx, n)
	if errors.Is(err, domain.ErrEventIgnored) {
		record.Outcome = domain.OutcomeIgnored
		record.ProcessedAt = &now
		if err := s.repo.InsertWebhookEvent(ctx, nil, record); err != nil && !dbutil.IsUniqueViolation(err) {
			s.replay.release(ctx, provider, n.RequestID)
			return nil, err
		}
		return &domain.WebhookResult{Outcome: domain.OutcomeIgnored}, nil
	}
	if err != nil {
		s.replay.release(ctx, provider, n.RequestID)
		return nil, err
	}
	record.PaymentID = paymentID

	event, err := adapter.FetchPayment(ctx, paymentID)
	if err != nil {
		s.replay.release(ctx, provider, n.RequestID)
		s.log.Error("failed to fetch provider payment",
			zap.String("provider", provider),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return nil, err
	}

	result := &domain.WebhookResult{Outcome: domain.OutcomeProcessed}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertWebhookEvent(ctx, tx, record); err != nil {
			if dbutil.IsUniqueViolation(err) {
				return errDuplicateDelivery
			}
			return err
		}

		charge, err := s.resolveCharge(ctx, tx, provider, event)
		if err != nil {
			return err
		}
		if charge == nil {
			s.log.Error("webhook payment does not match any charge",
				zap.String("provider", provider),
				zap.String("payment_id", event.PaymentID),
				zap.String("external_reference", event.ExternalReference),
			)
			result.Outcome = domain.OutcomeIgnored
			return s.finish(ctx, tx, record, nil, domain.OutcomeIgnored, domain.ErrChargeNotFound.Error())
		}
		result.ChargeID = charge.ID.String()

		if reason := mismatch(charge, event); reason != "" {
			s.log.Error("webhook payment does not match charge",
				zap.String("charge_id", charge.ID.String()),
				zap.String("payment_id", event.PaymentID),
				zap.String("reason", reason),
			)
			result.Outcome = domain.OutcomeIgnored
			return s.finish(ctx, tx, record, &charge.ID, domain.OutcomeIgnored, reason)
		}

		applied, err := s.applier.Apply(ctx, tx, charge, paymentservice.StatusUpdate{
			To:                event.Status,
			ProviderPaymentID: event.PaymentID,
			Source:            outbox.SourceWebhook,
			Reason:            strings.Trim(event.ProviderStatus+"/"+event.StatusDetail, "/"),
		})
		if err != nil {
			return err
		}

		fields := []zap.Field{
			zap.String("provider", provider),
			zap.String("charge_id", charge.ID.String()),
			zap.String("payment_id", event.PaymentID),
			zap.String("status", string(event.Status)),
			zap.Bool("charge_changed", applied.ChargeChanged),
		}
		if applied.Transition != nil {
			fields = append(fields, zap.Bool("entity_changed", applied.Transition.Changed))
		}
		s.log.Info("webhook applied", fields...)

		return s.finish(ctx, tx, record, &charge.ID, domain.OutcomeProcessed, "")
	})
	if errors.Is(err, errDuplicateDelivery) {
		return s.duplicate(provider, n.RequestID), nil
	}
	if err != nil {
		s.replay.release(ctx, provider, n.RequestID)
		s.log.Error("webhook processing failed",
			zap.String("provider", provider),
			zap.String("request_id", n.RequestID),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (s *Service) finish(ctx context.Context, tx *gorm.DB, record *domain.WebhookEvent, chargeID *snowflake.ID, outcome, reason string) error {
	now := s.clock.Now(ctx)
	record.ChargeID = chargeID
	record.Outcome = outcome
	record.Error = reason
	record.ProcessedAt = &now
	return s.repo.SaveWebhookEvent(ctx, tx, record)
}

func (s *Service) duplicate(provider, requestID string) *domain.WebhookResult {
	s.log.Info("duplicate webhook delivery skipped",
		zap.String("provider", provider),
		zap.String("request_id", requestID),
	)
	return &domain.WebhookResult{Outcome: domain.OutcomeDuplicate}
}

// resolveCharge finds the charge by external reference, falling back to the
// provider payment id. Both lookups lock the row on postgres.
func (s *Service) resolveCharge(ctx context.Context, tx *gorm.DB, provider string, event *domain.PaymentEvent) (*domain.Charge, error) {
	if id, err := snowflake.ParseString(event.ExternalReference); err == nil && id != 0 {
		charge, err := s.repo.FindCharge(ctx, tx, id, true)
		if err != nil {
			return nil, err
		}
		if charge != nil && charge.Provider == provider {
			return charge, nil
		}
	}
	if event.PaymentID == "" {
		return nil, nil
	}
	return s.repo.FindChargeByProviderPayment(ctx, tx, provider, event.PaymentID, true)
}

// mismatch rejects an approval that does not cover the charge.
func mismatch(charge *domain.Charge, event *domain.PaymentEvent) string {
	if event.Status != enrollmentdomain.StatusPaid {
		return ""
	}
	if event.Currency != "" && !strings.EqualFold(event.Currency, charge.Currency) {
		return "currency_mismatch"
	}
	if event.Amount > 0 && event.Amount < charge.Amount {
		return "amount_mismatch"
	}
	return ""
}

// checkTimestamp accepts unix seconds, unix milliseconds or RFC3339 and
// rejects anything further than the tolerance from now in either direction.
func (s *Service) checkTimestamp(ctx context.Context, raw string) error {
	ts, ok := parseTimestamp(raw)
	if !ok {
		return domain.ErrStaleTimestamp
	}
	skew := s.clock.Now(ctx).Sub(ts)
	if skew > s.tolerance || skew < -s.tolerance {
		return domain.ErrStaleTimestamp
	}
	return nil
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		if n >= 1_000_000_000_000 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func (s *Service) PurgeWebhookEvents(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		s.log.Info("webhook retention disabled", zap.Int("days", s.retentionDays))
		return 0, nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -s.retentionDays)
	deleted, err := s.repo.DeleteWebhookEventsBefore(ctx, nil, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("webhook events purged", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return deleted, nil
}
