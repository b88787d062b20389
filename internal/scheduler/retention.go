package scheduler

import (
	"context"

	paymentdomain "github.com/railzwaylabs/federation/internal/payment/domain"
)

func cleanupWebhookEvents(webhooks paymentdomain.WebhookService) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		deleted, err := webhooks.PurgeWebhookEvents(ctx)
		return int(deleted), err
	}
}
