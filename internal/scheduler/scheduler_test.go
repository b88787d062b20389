package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func countingJob(name, spec string, calls *atomic.Int32, err error) Job {
	return Job{
		Name: name,
		Spec: spec,
		Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 1, err
		},
	}
}

func TestRunOnce(t *testing.T) {
	var calls atomic.Int32
	s, err := newScheduler(zap.NewNop(), nil, []Job{countingJob("a", "@every 1h", &calls, nil)})
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background(), "a"))
	assert.EqualValues(t, 1, calls.Load())
	assert.ErrorIs(t, s.RunOnce(context.Background(), "missing"), ErrUnknownJob)
}

func TestRunOncePropagatesJobError(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	s, err := newScheduler(zap.NewNop(), nil, []Job{countingJob("a", "", &calls, boom)})
	require.NoError(t, err)
	assert.ErrorIs(t, s.RunOnce(context.Background(), "a"), boom)
}

func TestInvalidSpec(t *testing.T) {
	var calls atomic.Int32
	_, err := newScheduler(zap.NewNop(), nil, []Job{countingJob("a", "every tuesday", &calls, nil)})
	assert.Error(t, err)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	s, err := newScheduler(zap.NewNop(), client, []Job{countingJob("a", "", &calls, nil)})
	require.NoError(t, err)

	require.NoError(t, mr.Set(lockKey("a"), "other-replica"))
	require.NoError(t, s.RunOnce(context.Background(), "a"))
	assert.Zero(t, calls.Load())

	mr.Del(lockKey("a"))
	require.NoError(t, s.RunOnce(context.Background(), "a"))
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, mr.Exists(lockKey("a")))
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	s, err := newScheduler(zap.NewNop(), nil, []Job{countingJob("a", "@every 1h", &calls, nil)})
	require.NoError(t, err)
	s.Start()
	require.NoError(t, s.Stop(context.Background()))
}
