package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/metrolab/internal/config"
)

// ErrLeaseExpired means the equipment lock ran out before the submission
// finished and may have been taken by another instance.
var ErrLeaseExpired = errors.New("equipment lease expired")

const (
	keySubmissionActor = "verification:submit:actor:%s"
	keyEquipmentLock   = "verification:lock:equipment:%s"
)

// SubmissionLimiter throttles verification submissions per actor and
// serializes submissions for one equipment across instances. A nil
// limiter allows everything.
type SubmissionLimiter struct {
	bucket *Bucket
	leaser *Leaser

	actorLimit Limit
	lockTTL    time.Duration
}

func NewSubmissionLimiter(cfg config.Config) (*SubmissionLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	actorLimit := Limit{Rate: limitCfg.SubmissionActorRate, Burst: limitCfg.SubmissionActorBurst}
	if err := actorLimit.validate(); err != nil {
		return nil, fmt.Errorf("submission actor limit: %w", err)
	}
	if limitCfg.EquipmentLockTTL <= 0 {
		return nil, errors.New("equipment lock ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	return newSubmissionLimiter(client, actorLimit, limitCfg.EquipmentLockTTL), nil
}

func newSubmissionLimiter(client redis.Cmdable, actorLimit Limit, lockTTL time.Duration) *SubmissionLimiter {
	return &SubmissionLimiter{
		bucket:     NewBucket(client),
		leaser:     NewLeaser(client),
		actorLimit: actorLimit,
		lockTTL:    lockTTL,
	}
}

func (l *SubmissionLimiter) Enabled() bool {
	return l != nil
}

func (l *SubmissionLimiter) AllowActor(ctx context.Context, actorID string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	return l.bucket.Take(ctx, actorKey(actorID), l.actorLimit)
}

// LockEquipment returns ok=false when another submission holds the
// equipment. The lease is nil when the limiter is disabled.
func (l *SubmissionLimiter) LockEquipment(ctx context.Context, equipmentID string) (*Lease, bool, error) {
	if !l.Enabled() {
		return nil, true, nil
	}
	lease, err := l.leaser.Acquire(ctx, equipmentKey(equipmentID), l.lockTTL)
	if err != nil {
		return nil, false, err
	}
	return lease, lease != nil, nil
}

func (l *SubmissionLimiter) ReleaseEquipment(ctx context.Context, lease *Lease) error {
	if !l.Enabled() || lease == nil {
		return nil
	}
	held, err := l.leaser.Release(ctx, lease)
	if err != nil {
		return err
	}
	if !held {
		return ErrLeaseExpired
	}
	return nil
}

func actorKey(actorID string) string {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID = "anonymous"
	}
	return fmt.Sprintf(keySubmissionActor, actorID)
}

func equipmentKey(equipmentID string) string {
	return fmt.Sprintf(keyEquipmentLock, strings.TrimSpace(equipmentID))
}
