package login

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telefetch/telefetch/internal/tgerr"
)

const throttlePrefix = "rl:login:"

// Throttle limits how often a user may start a login flow, using Redis
// counters with a one-minute window. Redis failures fail open.
type Throttle struct {
	cache  *redis.Client
	perMin int
}

// NewThrottle builds a login throttle. maxPerMin defaults to 3 when zero.
func NewThrottle(cache *redis.Client, maxPerMin int) *Throttle {
	if maxPerMin <= 0 {
		maxPerMin = 3
	}
	return &Throttle{cache: cache, perMin: maxPerMin}
}

// Allow returns a RateLimitError when the user exceeded the window budget.
func (t *Throttle) Allow(ctx context.Context, userID int64) error {
	if t == nil || t.cache == nil {
		return nil
	}
	key := throttlePrefix + strconv.FormatInt(userID, 10)
	cnt, err := t.cache.Incr(ctx, key).Result()
	if err != nil {
		return nil
	}
	if cnt == 1 {
		t.cache.Expire(ctx, key, time.Minute)
	}
	if cnt > int64(t.perMin) {
		ttl, err := t.cache.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = time.Minute
		}
		return &tgerr.RateLimitError{Wait: ttl}
	}
	return nil
}
