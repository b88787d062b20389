package enrollment

import (
	"github.com/railzwaylabs/federation/internal/enrollment/repository"
	"github.com/railzwaylabs/federation/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
