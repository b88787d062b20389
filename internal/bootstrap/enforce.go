package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EnforceSchemaGate aborts startup until `migrate` has activated the current schema.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := gate.MustBeActive(ctx); err != nil {
				log.Named("bootstrap").Error("schema gate closed, run `federation migrate` first", zap.Error(err))
				return fmt.Errorf("schema gate: %w", err)
			}
			return nil
		},
	})
}
