package payment

import (
	"net/http"

	"github.com/railzwaylabs/federation/internal/config"
	"github.com/railzwaylabs/federation/internal/payment/adapters"
	"github.com/railzwaylabs/federation/internal/payment/adapters/manual"
	"github.com/railzwaylabs/federation/internal/payment/adapters/mercadopago"
	"github.com/railzwaylabs/federation/internal/payment/repository"
	paymentservice "github.com/railzwaylabs/federation/internal/payment/service"
	"github.com/railzwaylabs/federation/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		return adapters.NewRegistry(
			mercadopago.NewFactory(
				mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL),
				mercadopago.WithHTTPClient(&http.Client{Timeout: cfg.MercadoPago.HTTPTimeout}),
				mercadopago.AllowUnsigned(cfg.Payment.AllowUnsignedWebhooks),
			),
			manual.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewStatusApplier),
	fx.Provide(paymentservice.NewCheckoutService),
	fx.Provide(webhook.NewService),
)
