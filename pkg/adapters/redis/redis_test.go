package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/releasebot/pkg/adapters/redis"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestQueue_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunJobQueueContract(t, redis.NewQueue(client))
}

func TestQueue_Payload(t *testing.T) {
	mr, client := newClient(t)
	q := redis.NewQueue(client, redis.WithKey("custom:jobs"))
	ctx := context.Background()

	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, q.Enqueue(ctx, domain.Job{
		ID: "j1", Trigger: domain.TriggerPullRequest, Owner: "user-cont", Repository: "rlsbot-test",
		Sender: "alice", DeliveryID: "d-1", ReceivedAt: received,
	}))
	assert.True(t, mr.Exists("custom:jobs"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "alice", job.Sender)
	assert.Equal(t, "d-1", job.DeliveryID)
	assert.True(t, received.Equal(job.ReceivedAt))
}

func TestQueue_MalformedPayload(t *testing.T) {
	mr, client := newClient(t)
	_, err := mr.Lpush(redis.DefaultQueue, "{not json")
	require.NoError(t, err)

	_, err = redis.NewQueue(client).Dequeue(context.Background(), time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrQueueEmpty)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redis.Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = redis.Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestLocker(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "release-bot:")
	ctx := context.Background()

	t.Run("Exclusive", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "user-cont/rlsbot-test", time.Minute)
		require.NoError(t, err)
		assert.True(t, mr.Exists("release-bot:lock:user-cont/rlsbot-test"))

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "user-cont/rlsbot-test", time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		require.NoError(t, unlock(ctx))
		assert.False(t, mr.Exists("release-bot:lock:user-cont/rlsbot-test"))

		unlock, err = locker.Lock(ctx, "user-cont/rlsbot-test", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Expired Lock Is Not Stolen Back", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "o/r", time.Second)
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)
		other, err := locker.Lock(ctx, "o/r", time.Minute)
		require.NoError(t, err)

		// The first holder's unlock must not release the second holder's lock.
		assert.ErrorIs(t, unlock(ctx), redis.ErrLockExpired)
		assert.True(t, mr.Exists("release-bot:lock:o/r"))
		require.NoError(t, other(ctx))
	})
}
