package gateway

import (
	"github.com/railzwaylabs/federation/internal/gateway/repository"
	"github.com/railzwaylabs/federation/internal/gateway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
