package storage

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("storage",
	fx.Provide(
		NewClient,
		func(c *minio.Client) ObjectStore { return c },
		New,
	),
	fx.Invoke(registerBuckets),
)

// registerBuckets ensures buckets on start. An unreachable MinIO is logged,
// not fatal.
func registerBuckets(lc fx.Lifecycle, svc *Service, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := svc.EnsureBuckets(ctx); err != nil {
				log.Warn("object storage not ready", zap.Error(err))
			}
			return nil
		},
	})
}
