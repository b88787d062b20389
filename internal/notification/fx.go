package notification

import (
	"net/http"

	"github.com/railzwaylabs/federation/internal/config"
	"github.com/railzwaylabs/federation/internal/notification/channel/email"
	"github.com/railzwaylabs/federation/internal/notification/channel/webhook"
	"github.com/railzwaylabs/federation/internal/notification/channel/whatsapp"
	"github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/notification/repository"
	"github.com/railzwaylabs/federation/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		repository.New,
		service.New,
		service.NewDispatcher,
		func(cfg config.Config) map[string]domain.Channel {
			client := &http.Client{Timeout: cfg.Notification.HTTPTimeout}
			channels := []domain.Channel{
				whatsapp.New(client, cfg.Notification.WhatsAppBaseURL),
				email.New(nil),
				webhook.New(client),
			}
			out := make(map[string]domain.Channel, len(channels))
			for _, ch := range channels {
				out[ch.Name()] = ch
			}
			return out
		},
	),
)
