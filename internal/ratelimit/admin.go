package ratelimit

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewAdminMiddleware builds a per-IP fixed-window limiter guarding the
// admin API surface.
func NewAdminMiddleware(rdb *redis.Client, perMinute int) (func(http.Handler) http.Handler, error) {
	if rdb == nil || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "admin_rl"})
	if err != nil {
		return nil, err
	}
	instance := limiter.New(store, limiter.Rate{Period: time.Minute, Limit: int64(perMinute)})
	middleware := limiterstdlib.NewMiddleware(instance)
	return middleware.Handler, nil
}
