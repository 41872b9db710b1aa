package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

const rateLimitedBody = `{"error":"rate limit exceeded","code":"rate_limited"}`

// RateLimiter throttles clients with one token bucket each. Authenticated
// clients are keyed by user id, anonymous ones by remote host. At most
// maxClients buckets are tracked; the least recently seen client is dropped
// first and comes back with a full bucket.
type RateLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
	now     func() time.Time
}

// NewRateLimiter creates a limiter tracking up to maxClients clients.
func NewRateLimiter(maxClients int) (*RateLimiter, error) {
	buckets, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return &RateLimiter{buckets: buckets, now: time.Now}, nil
}

// Limit allows each client a burst of perMinute requests, refilled evenly
// over a minute. Rejected requests get 429 with Retry-After in seconds.
func (rl *RateLimiter) Limit(perMinute int) Middleware {
	every := rate.Every(time.Minute / time.Duration(perMinute))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := rl.now()
			res := rl.bucket(clientKey(r), every, perMinute).ReserveN(now, 1)
			if wait := res.DelayFrom(now); wait > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(rateLimitedBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) bucket(key string, every rate.Limit, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok := rl.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(every, burst)
	rl.buckets.Add(key, b)
	return b
}

func clientKey(r *http.Request) string {
	if id, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
