package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/federation/internal/bootstrap"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	"github.com/railzwaylabs/federation/internal/enrollment"
	"github.com/railzwaylabs/federation/internal/gateway"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	"github.com/railzwaylabs/federation/internal/migration"
	"github.com/railzwaylabs/federation/internal/notification"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	"github.com/railzwaylabs/federation/internal/payment"
	"github.com/railzwaylabs/federation/internal/redis"
	"github.com/railzwaylabs/federation/internal/scheduler"
	"github.com/railzwaylabs/federation/internal/security/vault"
	"github.com/railzwaylabs/federation/internal/seed"
	"github.com/railzwaylabs/federation/internal/server"
	"github.com/railzwaylabs/federation/internal/storage"
	"github.com/railzwaylabs/federation/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "federation",
		Short:   "Federation payments service",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(
		newMigrateCmd(),
		newServeCmd(),
		newSchedulerCmd(),
		newAllCmd(),
		newSeedGatewaysCmd(),
		newRunJobCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (webhooks, checkout, admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run background jobs: notification dispatch, charge expiry, webhook retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func newSeedGatewaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-gateways",
		Short: "Create or refresh the Mercado Pago and manual gateway configs from config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedGateways()
		},
	}
}

func newRunJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run-job <name>",
		Short:     "Run one scheduler job once and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{scheduler.JobDispatchNotifications, scheduler.JobExpireCharges, scheduler.JobCleanupWebhooks},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), args[0])
		},
	}
}

// coreModules are shared by every long-running command.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		vault.Module,
		outbox.Module,
		enrollment.Module,
		gateway.Module,
		payment.Module,
		notification.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		coreModules(),
		bootstrap.Module,
		storage.Module,
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		coreModules(),
		bootstrap.Module,
		scheduler.Module,
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		coreModules(),
		bootstrap.Module,
		storage.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func runSeedGateways() error {
	var (
		gateways gatewaydomain.Service
		cfg      config.Config
		log      *zap.Logger
	)
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		vault.Module,
		gateway.Module,
		fx.Populate(&gateways, &cfg, &log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("seed-gateways failed: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	result, err := seed.EnsureGateways(ctx, gateways, cfg, log)
	if err != nil {
		return fmt.Errorf("seed-gateways failed: %w", err)
	}
	log.Info("gateways seeded",
		zap.String("mercadopago", result.MercadoPago),
		zap.String("manual", result.Manual),
	)
	return nil
}

func runJob(ctx context.Context, name string) error {
	var s *scheduler.Scheduler
	app := fx.New(
		coreModules(),
		fx.Provide(scheduler.New),
		fx.Populate(&s),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("run-job failed: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if err := s.RunOnce(ctx, name); err != nil {
		return fmt.Errorf("run-job %s: %w", name, err)
	}
	return nil
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
