package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"golang.org/x/time/rate"
)

// DefaultLimiterCacheSize is how many per-user limiters are kept. The least
// recently used limiter is evicted first, which resets that user's bucket.
const DefaultLimiterCacheSize = 10000

// UserRateLimiter applies a token bucket per authenticated user.
type UserRateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	now      func() time.Time
}

// NewUserRateLimiter allows perMinute requests per user with the given burst.
// A non-positive perMinute disables limiting.
func NewUserRateLimiter(perMinute float64, burst, cacheSize int) (*UserRateLimiter, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultLimiterCacheSize
	}
	if burst < 1 {
		burst = 1
	}
	cache, err := lru.New[string, *rate.Limiter](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %w", err)
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	return &UserRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: cache,
		now:      time.Now,
	}, nil
}

func (l *UserRateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(key, lim)
	return lim
}

// Allow reports whether key may proceed now. When it may not, the returned
// duration is how long until the next token is available.
func (l *UserRateLimiter) Allow(key string) (bool, time.Duration) {
	if l.limit == rate.Inf {
		return true, 0
	}
	now := l.now()
	res := l.limiterFor(key).ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

// Limit rejects requests over the caller's budget with 429 and a
// Retry-After header. It must run after authentication; requests without a
// user are keyed by remote address.
func (l *UserRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if userID, ok := shared.UserIDFromContext(r.Context()); ok {
			key = userID.String()
		}

		allowed, retryAfter := l.Allow(key)
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			logger.FromContext(r.Context()).Debug("rate limit exceeded",
				slog.Int("retry_after_seconds", seconds))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			shared.RespondWithError(w, r, http.StatusTooManyRequests, "RATE_LIMITED",
				"Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
