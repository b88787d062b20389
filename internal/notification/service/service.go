package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/security/vault"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxRetriesLimit = 10

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Vault    vault.Provider
	Channels map[string]domain.Channel
	Metrics  *observability.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	vault    vault.Provider
	channels map[string]domain.Channel
	metrics  *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("notification.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		vault:    p.Vault,
		channels: p.Channels,
		metrics:  p.Metrics,
	}
}

func (s *Service) ListConfigs(ctx context.Context) ([]*domain.NotificationConfig, error) {
	items, err := s.repo.ListConfigs(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		s.describe(item)
	}
	return items, nil
}

func (s *Service) GetConfig(ctx context.Context, channel string) (*domain.NotificationConfig, error) {
	ch, err := normalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.FindConfig(ctx, nil, ch)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrChannelNotConfigured
	}
	s.describe(cfg)
	return cfg, nil
}

// describe exposes the stored setting names, never their values.
func (s *Service) describe(cfg *domain.NotificationConfig) {
	settings, err := decryptSettings(s.vault, cfg)
	if err != nil {
		s.log.Warn("notification settings unreadable", zap.String("channel", cfg.Channel), zap.Error(err))
		return
	}
	cfg.SettingKeys = settingKeys(settings)
}

// UpsertConfig merges req.Settings into the stored settings. An empty value
// removes the key.
func (s *Service) UpsertConfig(ctx context.Context, channel string, req domain.UpsertConfigRequest) (*domain.NotificationConfig, error) {
	ch, err := normalizeChannel(channel)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	cfg, err := s.repo.FindConfig(ctx, nil, ch)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &domain.NotificationConfig{Channel: ch, MaxRetries: 3, CreatedAt: now}
	}

	settings, err := decryptSettings(s.vault, cfg)
	if err != nil {
		if len(req.Settings) == 0 {
			return nil, err
		}
		settings = map[string]string{}
	}
	for k, v := range req.Settings {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if strings.TrimSpace(v) == "" {
			delete(settings, key)
			continue
		}
		settings[key] = strings.TrimSpace(v)
	}

	if req.MaxRetries != nil {
		if *req.MaxRetries < 1 || *req.MaxRetries > maxRetriesLimit {
			return nil, domain.ErrInvalidMaxRetries
		}
		cfg.MaxRetries = *req.MaxRetries
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if cfg.Enabled {
		if err := validateSettings(ch, settings); err != nil {
			return nil, err
		}
	}

	if len(settings) == 0 {
		cfg.EncryptedSettings = nil
	} else {
		encrypted, err := vault.EncryptMap(s.vault, settings)
		if err != nil {
			s.log.Error("failed to encrypt notification settings", zap.String("channel", ch), zap.Error(err))
			return nil, err
		}
		cfg.EncryptedSettings = encrypted
	}
	cfg.UpdatedAt = now

	if err := s.repo.SaveConfig(ctx, nil, cfg); err != nil {
		return nil, err
	}
	cfg.SettingKeys = settingKeys(settings)

	s.log.Info("notification config updated",
		zap.String("channel", ch),
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Strings("setting_keys", cfg.SettingKeys),
	)
	return cfg, nil
}

func (s *Service) ListLogs(ctx context.Context, filter domain.LogFilter) ([]*domain.NotificationLog, error) {
	if filter.Channel != "" {
		ch, err := normalizeChannel(filter.Channel)
		if err != nil {
			return nil, err
		}
		filter.Channel = ch
	}
	switch filter.Status {
	case "", domain.StatusSent, domain.StatusFailed, domain.StatusSkipped:
	default:
		return nil, domain.ErrInvalidSettings
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.ListLogs(ctx, nil, filter)
}

func (s *Service) SendTest(ctx context.Context, channel string, req domain.TestRequest) (*domain.NotificationLog, error) {
	ch, err := normalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	impl, ok := s.channels[ch]
	if !ok {
		return nil, domain.ErrUnknownChannel
	}
	cfg, err := s.repo.FindConfig(ctx, nil, ch)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrChannelNotConfigured
	}
	settings, err := decryptSettings(s.vault, cfg)
	if err != nil {
		return nil, err
	}
	if err := validateSettings(ch, settings); err != nil {
		return nil, err
	}

	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = impl.Recipient(nil, settings)
	}
	if recipient == "" {
		return nil, domain.ErrMissingRecipient
	}
	body := strings.TrimSpace(req.Message)
	if body == "" {
		body = "Mensaje de prueba de notificaciones de la federación."
	}

	msg := domain.Message{
		Template:  "test",
		Recipient: recipient,
		Subject:   "Prueba de notificaciones",
		Body:      body,
	}
	sendErr := impl.Send(ctx, settings, msg)

	entry := &domain.NotificationLog{
		ID:        s.genID.Generate(),
		Channel:   ch,
		Recipient: recipient,
		Template:  msg.Template,
		Status:    domain.StatusSent,
		Attempt:   1,
		CreatedAt: s.clock.Now(ctx),
	}
	if sendErr != nil {
		entry.Status = domain.StatusFailed
		entry.Error = sendErr.Error()
	}
	if err := s.repo.InsertLog(ctx, nil, entry); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(ch, entry.Status).Inc()
	}

	s.log.Info("test notification sent",
		zap.String("channel", ch),
		zap.String("status", entry.Status),
		zap.Error(sendErr),
	)
	return entry, nil
}
