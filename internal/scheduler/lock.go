package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type jobLocks struct {
	client *redis.Client
}

func lockKey(job string) string {
	return "scheduler:lock:" + job
}

// acquire takes the per-job lock. Without Redis every caller owns the job.
func (l *jobLocks) acquire(ctx context.Context, job string, ttl time.Duration) (bool, func(), error) {
	noop := func() {}
	if l == nil || l.client == nil {
		return true, noop, nil
	}

	ok, err := l.client.SetNX(ctx, lockKey(job), time.Now().UTC().Unix(), ttl).Result()
	if err != nil || !ok {
		return false, noop, err
	}
	return true, func() {
		_ = l.client.Del(context.Background(), lockKey(job)).Err()
	}, nil
}
