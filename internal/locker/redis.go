package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/config"
)

// releaseScript deletes the lock only while it still carries our token, so
// a holder whose lease expired cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// Redis is a lease-based lock: SET key token NX PX ttl, retried every
// cfg.Retry until cfg.Wait has passed.  The lease bounds how long a crashed
// holder can block a car.
type Redis struct {
	rdb      *redis.Client
	cfg      config.LockConfig
	fallback booking.Locker
}

// NewRedis builds a Redis lock.  When Redis itself fails (not when the key
// is merely held) the fallback lock is used instead; fallback may be nil.
func NewRedis(rdb *redis.Client, cfg config.LockConfig, fallback booking.Locker) *Redis {
	return &Redis{rdb: rdb, cfg: cfg, fallback: fallback}
}

// Lock implements booking.Locker.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.cfg.Prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.cfg.Wait)
	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.cfg.TTL).Result()
		if err != nil {
			if r.fallback != nil && ctx.Err() == nil {
				log.Warnf("locker: redis unavailable for %s, using local lock: %v", k, err)
				return r.fallback.Lock(ctx, key)
			}
			return nil, fmt.Errorf("redis lock %s: %w", k, err)
		}
		if ok {
			return func() { r.release(k, token) }, nil
		}
		if time.Now().Add(r.cfg.Retry).After(deadline) {
			return nil, fmt.Errorf("%w: waited %s for %s", booking.ErrBusy, r.cfg.Wait, key)
		}
		select {
		case <-time.After(r.cfg.Retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
		log.Warnf("locker: release %s failed, lease expires in %s: %v", key, r.cfg.TTL, err)
	}
}
