package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// replayGuard is the fast-path dedupe for x-request-id. The unique
// webhook_events row remains the source of truth when Redis is unavailable.
type replayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func replayKey(provider, requestID string) string {
	return "webhook:replay:" + provider + ":" + requestID
}

// claim reports false when the request id was already claimed.
func (g *replayGuard) claim(ctx context.Context, provider, requestID string) (bool, error) {
	if g == nil || g.client == nil {
		return true, nil
	}
	return g.client.SetNX(ctx, replayKey(provider, requestID), time.Now().UTC().Unix(), g.ttl).Result()
}

// release drops a claim so the provider's retry is processed again.
func (g *replayGuard) release(ctx context.Context, provider, requestID string) {
	if g == nil || g.client == nil {
		return
	}
	_ = g.client.Del(ctx, replayKey(provider, requestID)).Err()
}
