package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/clock"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/gateway/domain"
	"github.com/railzwaylabs/federation/internal/security/vault"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Vault vault.Provider
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	vault vault.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("gateway.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		vault: p.Vault,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.GatewayConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if !knownProvider(provider) {
		return nil, domain.ErrInvalidProvider
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, domain.ErrInvalidDisplayName
	}
	methods, err := normalizeMethods(req.AllowedMethods)
	if err != nil {
		return nil, err
	}
	entityTypes, err := normalizeEntityTypes(req.EntityTypes)
	if err != nil {
		return nil, err
	}
	checkoutType, err := normalizeCheckoutType(req.CheckoutType, provider)
	if err != nil {
		return nil, err
	}
	webhookURL, err := normalizeWebhookURL(req.WebhookURL)
	if err != nil {
		return nil, err
	}
	if provider == domain.ProviderMercadoPago && strings.TrimSpace(req.AccessToken) == "" {
		return nil, domain.ErrMissingAccessToken
	}

	secrets, err := vault.EncryptMap(s.vault, compactSecrets(map[string]string{
		domain.SecretAccessToken:   strings.TrimSpace(req.AccessToken),
		domain.SecretWebhookSecret: strings.TrimSpace(req.WebhookSecret),
	}))
	if err != nil {
		return nil, fmt.Errorf("seal gateway secrets: %w", err)
	}

	now := s.clock.Now(ctx)
	cfg := &domain.GatewayConfig{
		ID:               s.genID.Generate(),
		Provider:         provider,
		DisplayName:      name,
		IsActive:         req.IsActive,
		Priority:         req.Priority,
		AllowedMethods:   methods,
		EntityTypes:      entityTypes,
		CheckoutType:     checkoutType,
		WebhookURL:       webhookURL,
		PublicKey:        strings.TrimSpace(req.PublicKey),
		EncryptedSecrets: secrets,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, nil, cfg); err != nil {
		return nil, err
	}

	s.log.Info("gateway config created",
		zap.String("gateway_config_id", cfg.ID.String()),
		zap.String("provider", cfg.Provider),
		zap.Int("priority", cfg.Priority),
		zap.Bool("active", cfg.IsActive),
	)
	return s.present(cfg), nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.GatewayConfig, error) {
	cfg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, domain.ErrInvalidDisplayName
		}
		cfg.DisplayName = name
	}
	if req.Priority != nil {
		cfg.Priority = *req.Priority
	}
	if req.AllowedMethods != nil {
		if cfg.AllowedMethods, err = normalizeMethods(req.AllowedMethods); err != nil {
			return nil, err
		}
	}
	if req.EntityTypes != nil {
		if cfg.EntityTypes, err = normalizeEntityTypes(req.EntityTypes); err != nil {
			return nil, err
		}
	}
	if req.CheckoutType != nil {
		if cfg.CheckoutType, err = normalizeCheckoutType(*req.CheckoutType, cfg.Provider); err != nil {
			return nil, err
		}
	}
	if req.WebhookURL != nil {
		if cfg.WebhookURL, err = normalizeWebhookURL(*req.WebhookURL); err != nil {
			return nil, err
		}
	}
	if req.PublicKey != nil {
		cfg.PublicKey = strings.TrimSpace(*req.PublicKey)
	}

	if req.AccessToken != nil || req.WebhookSecret != nil {
		secrets, err := vault.DecryptMap(s.vault, cfg.EncryptedSecrets)
		if err != nil {
			return nil, domain.ErrCredentialsCorrupted
		}
		if req.AccessToken != nil && strings.TrimSpace(*req.AccessToken) != "" {
			secrets[domain.SecretAccessToken] = strings.TrimSpace(*req.AccessToken)
		}
		if req.WebhookSecret != nil && strings.TrimSpace(*req.WebhookSecret) != "" {
			secrets[domain.SecretWebhookSecret] = strings.TrimSpace(*req.WebhookSecret)
		}
		if cfg.EncryptedSecrets, err = vault.EncryptMap(s.vault, compactSecrets(secrets)); err != nil {
			return nil, fmt.Errorf("seal gateway secrets: %w", err)
		}
	}

	cfg.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.Update(ctx, nil, cfg); err != nil {
		return nil, err
	}

	s.log.Info("gateway config updated", zap.String("gateway_config_id", cfg.ID.String()))
	return s.present(cfg), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.GatewayConfig, error) {
	cfg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(cfg), nil
}

func (s *Service) List(ctx context.Context) ([]*domain.GatewayConfig, error) {
	configs, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		s.present(cfg)
	}
	return configs, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	configID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, nil, configID); err != nil {
		return err
	}
	s.log.Info("gateway config deleted", zap.String("gateway_config_id", configID.String()))
	return nil
}

func (s *Service) Toggle(ctx context.Context, id string, active bool) (*domain.GatewayConfig, error) {
	configID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if err := s.repo.SetActive(ctx, nil, configID, active); err != nil {
		return nil, err
	}

	s.log.Info("gateway config toggled",
		zap.String("gateway_config_id", configID.String()),
		zap.Bool("active", active),
	)
	return s.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context, provider string) ([]*domain.GatewayConfig, error) {
	return s.repo.ListActive(ctx, nil, provider)
}

func (s *Service) Select(ctx context.Context, entityType, method string) (*domain.GatewayConfig, error) {
	entityType = strings.ToLower(strings.TrimSpace(entityType))
	method = strings.ToLower(strings.TrimSpace(method))

	configs, err := s.repo.ListActive(ctx, nil, "")
	if err != nil {
		return nil, err
	}

	for _, cfg := range configs {
		if cfg.Supports(entityType, method) {
			return cfg, nil
		}
	}

	s.log.Warn("no gateway available",
		zap.String("entity_type", entityType),
		zap.String("method", method),
		zap.Int("active_configs", len(configs)),
	)
	return nil, domain.ErrNoGatewayAvailable
}

func (s *Service) Credentials(cfg *domain.GatewayConfig) (domain.Credentials, error) {
	if cfg == nil {
		return domain.Credentials{}, domain.ErrNotFound
	}
	secrets, err := vault.DecryptMap(s.vault, cfg.EncryptedSecrets)
	if err != nil {
		s.log.Error("failed to decrypt gateway secrets",
			zap.String("gateway_config_id", cfg.ID.String()),
			zap.Error(err),
		)
		return domain.Credentials{}, domain.ErrCredentialsCorrupted
	}
	return domain.Credentials{
		AccessToken:   secrets[domain.SecretAccessToken],
		PublicKey:     cfg.PublicKey,
		WebhookSecret: secrets[domain.SecretWebhookSecret],
		WebhookURL:    cfg.WebhookURL,
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.GatewayConfig, error) {
	configID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	cfg, err := s.repo.FindByID(ctx, nil, configID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

// present fills the secret presence flags for API responses.
func (s *Service) present(cfg *domain.GatewayConfig) *domain.GatewayConfig {
	secrets, err := vault.DecryptMap(s.vault, cfg.EncryptedSecrets)
	if err != nil {
		return cfg
	}
	cfg.HasAccessToken = secrets[domain.SecretAccessToken] != ""
	cfg.HasWebhookSecret = secrets[domain.SecretWebhookSecret] != ""
	return cfg
}

func knownProvider(provider string) bool {
	return provider == domain.ProviderMercadoPago || provider == domain.ProviderManual
}

func normalizeMethods(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		m = strings.ToLower(strings.TrimSpace(m))
		if !slices.Contains(domain.PaymentMethods, m) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMethod, m)
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrInvalidMethod
	}
	return out, nil
}

func normalizeEntityTypes(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		parsed, err := enrollmentdomain.ParseEntityType(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntityType, t)
		}
		if !slices.Contains(out, string(parsed)) {
			out = append(out, string(parsed))
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrInvalidEntityType
	}
	return out, nil
}

func normalizeCheckoutType(raw, provider string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		if provider == domain.ProviderManual {
			return domain.CheckoutOffline, nil
		}
		return domain.CheckoutRedirect, nil
	}
	switch value {
	case domain.CheckoutRedirect, domain.CheckoutEmbedded, domain.CheckoutOffline:
	default:
		return "", domain.ErrInvalidCheckoutType
	}
	if provider == domain.ProviderManual && value != domain.CheckoutOffline {
		return "", domain.ErrInvalidCheckoutType
	}
	return value, nil
}

func normalizeWebhookURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.ErrInvalidWebhookURL
	}
	return value, nil
}

func compactSecrets(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

