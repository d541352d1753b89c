package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/releasebot/pkg/ports"
)

const lockRetryInterval = 100 * time.Millisecond

// ErrLockExpired is returned by an unlock whose lock timed out while the cycle
// was still running. Another worker may have run the same repository meanwhile.
var ErrLockExpired = errors.New("repository lock expired before release")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker implements ports.DistributedLocker with one Redis key per repository.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker keys locks as <prefix>lock:<owner/repository>.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Lock waits for the repository lock with SET NX PX until it is free or ctx is
// done. The lock expires after ttl if the holder dies.
func (l *Locker) Lock(ctx context.Context, repository string, ttl time.Duration) (ports.UnlockFunc, error) {
	key := l.prefix + "lock:" + repository
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock for %s: %w", repository, err)
		}
		if ok {
			return func(ctx context.Context) error {
				n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
				if err != nil {
					return fmt.Errorf("releasing lock for %s: %w", repository, err)
				}
				if n == 0 {
					return ErrLockExpired
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
