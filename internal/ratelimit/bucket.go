package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeScript refills the bucket from the Redis clock and takes one token.
// Token counts travel as integer milli-tokens because Redis truncates Lua
// numbers on the way out.
const takeScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl_ms = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now_ms = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last_ms = tonumber(state[2]) or now_ms

local elapsed = math.max(0, now_ms - last_ms)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now_ms)
redis.call("PEXPIRE", KEYS[1], ttl_ms)

return {allowed, math.floor(tokens * 1000)}
`

// Limit is a refill rate in tokens per second and a bucket size.
type Limit struct {
	Rate  float64
	Burst int
}

func (l Limit) validate() error {
	if l.Rate <= 0 {
		return errors.New("bucket rate must be positive")
	}
	if l.Burst <= 0 {
		return errors.New("bucket burst must be positive")
	}
	return nil
}

// idleTTL keeps an untouched bucket around for twice its full refill time.
func (l Limit) idleTTL() time.Duration {
	seconds := math.Ceil(2 * float64(l.Burst) / l.Rate)
	return time.Duration(math.Max(seconds, 1)) * time.Second
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Bucket is a token bucket shared by every instance through Redis.
type Bucket struct {
	client redis.Scripter
	script *redis.Script
}

func NewBucket(client redis.Scripter) *Bucket {
	return &Bucket{client: client, script: redis.NewScript(takeScript)}
}

func (b *Bucket) Take(ctx context.Context, key string, limit Limit) (Decision, error) {
	if b == nil || b.client == nil {
		return Decision{}, errors.New("bucket client not configured")
	}
	if key == "" {
		return Decision{}, errors.New("bucket key is empty")
	}
	if err := limit.validate(); err != nil {
		return Decision{}, err
	}

	values, err := b.script.Run(ctx, b.client, []string{key},
		limit.Rate, limit.Burst, limit.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("take token: %w", err)
	}
	if len(values) != 2 {
		return Decision{}, fmt.Errorf("take token: unexpected reply of %d values", len(values))
	}
	return decide(values[0] == 1, values[1], limit), nil
}

// decide turns the script reply into a Decision. A denied caller waits for
// the missing fraction of a token to refill.
func decide(allowed bool, milliTokens int64, limit Limit) Decision {
	d := Decision{
		Allowed:   allowed,
		Limit:     limit.Burst,
		Remaining: int(milliTokens / 1000),
	}
	if !allowed {
		missing := 1 - float64(milliTokens)/1000
		if missing > 0 {
			d.RetryAfter = time.Duration(missing / limit.Rate * float64(time.Second))
		}
	}
	return d
}
