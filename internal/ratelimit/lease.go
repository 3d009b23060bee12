package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never frees a lock taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a held lock. It expires on its own after the ttl it was taken
// with.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

// Leaser hands out exclusive, expiring leases on Redis keys.
type Leaser struct {
	client redis.Cmdable
}

func NewLeaser(client redis.Cmdable) *Leaser {
	return &Leaser{client: client}
}

// Acquire returns nil without error when another holder has the key.
func (l *Leaser) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("leaser client not configured")
	}
	if key == "" {
		return nil, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("lease ttl must be positive")
	}

	token := uuid.NewString()
	taken, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !taken {
		return nil, nil
	}
	return &Lease{Key: key, Token: token, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Release reports whether the lease was still held when it was released.
func (l *Leaser) Release(ctx context.Context, lease *Lease) (bool, error) {
	if l == nil || l.client == nil || lease == nil {
		return false, nil
	}
	deleted, err := releaseScript.Run(ctx, l.client, []string{lease.Key}, lease.Token).Int64()
	if err != nil {
		return false, fmt.Errorf("release lease %s: %w", lease.Key, err)
	}
	return deleted == 1, nil
}
