package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/httpapi"
)

const storePrefix = "portal-rate-limit"

type RateLimitConfig struct {
	RequestsPerPeriod int
	// Defaults to one second.
	Period time.Duration
	Store  limiter.Store
	// Defaults to the client IP.
	KeyFunc func(r *http.Request) string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          storePrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: storePrefix})
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "create redis limiter store")
	}
	return store, nil
}

// IPKey keys requests by the resolved client IP.
func IPKey(r *http.Request) string {
	if ip, ok := composables.UseIP(r.Context()); ok && ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 once a key exceeds its allowance. A failing store
// lets the request through.
func RateLimit(config RateLimitConfig) mux.MiddlewareFunc {
	period := config.Period
	if period <= 0 {
		period = time.Second
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = IPKey
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	lim := limiter.New(store, limiter.Rate{Period: period, Limit: int64(config.RequestsPerPeriod)})

	return func(next http.Handler) http.Handler {
		if config.RequestsPerPeriod <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := lim.Get(r.Context(), keyFunc(r))
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
			if res.Reached {
				_ = httpapi.WriteError(w, http.StatusTooManyRequests, httpapi.CodeTooManyRequest,
					"Too many requests. Please try again later.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPRateLimitPeriod allows requests per period for every client IP.
func IPRateLimitPeriod(requests int, period time.Duration) mux.MiddlewareFunc {
	return RateLimit(RateLimitConfig{
		RequestsPerPeriod: requests,
		Period:            period,
		Store:             NewMemoryStore(),
		KeyFunc:           IPKey,
	})
}
