// Package scheduler runs the periodic jobs: notification dispatch, stale
// charge expiry and webhook retention.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/railzwaylabs/federation/internal/config"
	notificationservice "github.com/railzwaylabs/federation/internal/notification/service"
	paymentdomain "github.com/railzwaylabs/federation/internal/payment/domain"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobDispatchNotifications = "dispatch_notifications"
	JobExpireCharges         = "expire_stale_charges"
	JobCleanupWebhooks       = "cleanup_webhook_events"

	jobTimeout = 5 * time.Minute
)

var ErrUnknownJob = errors.New("unknown_job")

// Job is one unit of periodic work. Run returns how many items it handled.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Checkout   paymentdomain.CheckoutService
	Webhooks   paymentdomain.WebhookService
	Dispatcher *notificationservice.Dispatcher
	Redis      *redis.Client `optional:"true"`
}

type Scheduler struct {
	cron  *cron.Cron
	log   *zap.Logger
	locks *jobLocks
	jobs  map[string]Job
}

func New(p Params) (*Scheduler, error) {
	return newScheduler(p.Log, p.Redis, []Job{
		{Name: JobDispatchNotifications, Spec: p.Cfg.Scheduler.DispatchSpec, Run: p.Dispatcher.ProcessEvents},
		{Name: JobExpireCharges, Spec: p.Cfg.Scheduler.ExpirySpec, Run: p.Checkout.ExpireStaleCharges},
		{Name: JobCleanupWebhooks, Spec: p.Cfg.Scheduler.RetentionSpec, Run: cleanupWebhookEvents(p.Webhooks)},
	})
}

func newScheduler(log *zap.Logger, client *redis.Client, jobs []Job) (*Scheduler, error) {
	log = log.Named("scheduler")
	cronLog := cronLogger{log: log.Sugar()}
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		), cron.WithLogger(cronLog)),
		log:   log,
		locks: &jobLocks{client: client},
		jobs:  make(map[string]Job, len(jobs)),
	}

	for _, job := range jobs {
		s.jobs[job.Name] = job
		if job.Spec == "" {
			log.Info("job disabled", zap.String("job", job.Name))
			continue
		}
		name := job.Name
		if _, err := s.cron.AddFunc(job.Spec, func() {
			_ = s.RunOnce(context.Background(), name)
		}); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
	}
	return s, nil
}

// RunOnce runs a job now. With Redis configured only one replica runs a job
// at a time; the others skip.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return ErrUnknownJob
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	owner, release, err := s.locks.acquire(ctx, name, jobTimeout)
	if err != nil {
		s.log.Warn("job lock unavailable, running unguarded", zap.String("job", name), zap.Error(err))
		owner = true
	}
	if !owner {
		s.log.Debug("job already running elsewhere", zap.String("job", name))
		return nil
	}
	defer release()

	start := time.Now()
	count, err := job.Run(ctx)
	fields := []zap.Field{
		zap.String("job", name),
		zap.Int("processed", count),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.log.Error("job failed", append(fields, zap.Error(err))...)
		return err
	}
	if count > 0 {
		s.log.Info("job finished", fields...)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
