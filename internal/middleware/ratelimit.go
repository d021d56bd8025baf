package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/excuse-deck/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultExcuseRate bounds free-form excuse generation per client
const DefaultExcuseRate = "20-M"

const rateLimitPrefix = "excuse-deck-limiter"

// NewRateLimitStore returns a Redis limiter store, or an in-process one when
// client is nil or Redis is unreachable.
func NewRateLimitStore(ctx context.Context, client *redis.Client, logger *zap.Logger) limiter.Store {
	if client != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
			if err == nil {
				return store
			}
			logger.Warn("rate_limit_redis_store_failed", zap.Error(err))
		} else {
			logger.Warn("rate_limit_redis_unavailable", zap.Error(err))
		}
	}
	return memorystore.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

// RateLimit limits requests per deck session, falling back to the client IP
// for requests without one. rate uses the limiter format, e.g. "20-M".
func RateLimit(store limiter.Store, rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultExcuseRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rate, err)
	}

	instance := limiter.New(store, parsed)
	keyGetter := func(r *http.Request) string {
		if id := request.SessionID(r); id != "" {
			return "session:" + id
		}
		return "ip:" + request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(keyGetter),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondErrorJSON(w, r, http.StatusTooManyRequests, "rate_limited", "Too many requests, slow down", zap.NewNop())
		}),
	)
	return mw.Handler, nil
}
