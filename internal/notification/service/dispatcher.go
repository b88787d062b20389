package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	"github.com/railzwaylabs/federation/internal/security/vault"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultBatchSize = 50

type DispatcherParams struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       domain.Repository
	Outbox     outbox.Repository
	Enrollment enrollmentdomain.Service
	Vault      vault.Provider
	Channels   map[string]domain.Channel
	Metrics    *observability.Metrics `optional:"true"`
}

// Dispatcher consumes undispatched payment_events in id order and notifies
// the entity over every enabled channel.
type Dispatcher struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	outbox     outbox.Repository
	enrollment enrollmentdomain.Service
	vault      vault.Provider
	channels   map[string]domain.Channel
	metrics    *observability.Metrics
	batchSize  int
	backoff    time.Duration
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	batch := p.Cfg.Notification.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Dispatcher{
		log:        p.Log.Named("notification.dispatcher"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		outbox:     p.Outbox,
		enrollment: p.Enrollment,
		vault:      p.Vault,
		channels:   p.Channels,
		metrics:    p.Metrics,
		batchSize:  batch,
		backoff:    p.Cfg.Notification.RetryBackoff,
	}
}

type activeChannel struct {
	channel    domain.Channel
	settings   map[string]string
	maxRetries int
}

// ProcessEvents handles one batch and returns how many events were consumed.
func (d *Dispatcher) ProcessEvents(ctx context.Context) (int, error) {
	events, err := d.outbox.ListPending(ctx, nil, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	active, err := d.activeChannels(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range events {
		event := &events[i]
		if err := d.dispatch(ctx, event, active); err != nil {
			d.log.Error("failed to dispatch event", zap.Error(err), zap.String("event_id", event.ID.String()))
			return processed, err
		}

		// Mark one by one so a crash never resends a whole batch.
		if err := d.outbox.MarkDispatched(ctx, nil, event.ID, d.clock.Now(ctx)); err != nil {
			return processed, err
		}
		processed++
	}

	d.log.Info("notification batch dispatched",
		zap.Int("events", processed),
		zap.Int("channels", len(active)),
		zap.String("last_event_id", events[len(events)-1].ID.String()),
	)
	return processed, nil
}

func (d *Dispatcher) activeChannels(ctx context.Context) ([]activeChannel, error) {
	configs, err := d.repo.ListConfigs(ctx, nil)
	if err != nil {
		return nil, err
	}

	active := make([]activeChannel, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		impl, ok := d.channels[cfg.Channel]
		if !ok {
			continue
		}
		settings, err := decryptSettings(d.vault, cfg)
		if err != nil {
			d.log.Warn("skipping channel with unreadable settings", zap.String("channel", cfg.Channel), zap.Error(err))
			continue
		}
		retries := cfg.MaxRetries
		if retries < 1 {
			retries = 1
		}
		active = append(active, activeChannel{channel: impl, settings: settings, maxRetries: retries})
	}
	return active, nil
}

// dispatch returns an error only when the event must be retried later.
// Channel delivery failures are logged and still mark the event dispatched.
func (d *Dispatcher) dispatch(ctx context.Context, event *outbox.Event, active []activeChannel) error {
	if !Notifiable(event.EventType) || len(active) == 0 {
		return nil
	}

	entity, err := d.enrollment.Get(ctx, event.EntityType, event.EntityID.String())
	if errors.Is(err, enrollmentdomain.ErrNotFound) || errors.Is(err, enrollmentdomain.ErrInvalidEntityType) {
		d.log.Warn("outbox event entity missing",
			zap.String("event_id", event.ID.String()),
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID.String()),
		)
		return nil
	}
	if err != nil {
		return err
	}

	msg := Render(event, entity)
	for _, ch := range active {
		if err := d.deliver(ctx, ch, entity, msg); err != nil {
			return err
		}
	}
	return nil
}

// deliver tries one channel up to maxRetries times and logs every attempt.
// It returns an error only when logging fails or ctx is done.
func (d *Dispatcher) deliver(ctx context.Context, ch activeChannel, entity *enrollmentdomain.Entity, msg domain.Message) error {
	name := ch.channel.Name()
	msg.Recipient = ch.channel.Recipient(entity, ch.settings)
	if msg.Recipient == "" {
		return d.writeLog(ctx, name, msg, domain.StatusSkipped, 0, domain.ErrMissingRecipient)
	}

	for attempt := 1; attempt <= ch.maxRetries; attempt++ {
		sendErr := ch.channel.Send(ctx, ch.settings, msg)
		status := domain.StatusSent
		if sendErr != nil {
			status = domain.StatusFailed
		}
		if err := d.writeLog(ctx, name, msg, status, attempt, sendErr); err != nil {
			return err
		}
		if sendErr == nil {
			return nil
		}

		d.log.Warn("notification attempt failed",
			zap.String("channel", name),
			zap.String("template", msg.Template),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", ch.maxRetries),
			zap.Error(sendErr),
		)
		if attempt < ch.maxRetries {
			if err := d.wait(ctx, attempt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) wait(ctx context.Context, attempt int) error {
	if d.backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.backoff * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) writeLog(ctx context.Context, channel string, msg domain.Message, status string, attempt int, sendErr error) error {
	entry := &domain.NotificationLog{
		ID:        d.genID.Generate(),
		EventID:   msg.EventID,
		Channel:   channel,
		Recipient: msg.Recipient,
		Template:  msg.Template,
		Status:    status,
		Attempt:   attempt,
		CreatedAt: d.clock.Now(ctx),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if d.metrics != nil {
		d.metrics.NotificationsTotal.WithLabelValues(channel, status).Inc()
	}
	return d.repo.InsertLog(ctx, nil, entry)
}
