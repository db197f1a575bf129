package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m-a-mahammad/shop-checkout/pkg/httputil"
)

// userLimiter tracks a rate limiter per authenticated user.
type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore manages per-user rate limiters with cleanup of stale entries.
type limiterStore struct {
	mu       sync.Mutex
	users    map[string]*userLimiter
	rps      int
	burst    int
	ttl      time.Duration
	nowFunc  func() time.Time // injectable clock for testing
}

func newLimiterStore(rps, burst int, ttl time.Duration) *limiterStore {
	s := &limiterStore{
		users:   make(map[string]*userLimiter),
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
		nowFunc: time.Now,
	}
	go s.cleanupLoop()
	return s
}

func (s *limiterStore) get(userID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[userID]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
		s.users[userID] = &userLimiter{limiter: limiter, lastSeen: s.nowFunc()}
		return limiter
	}
	u.lastSeen = s.nowFunc()
	return u.limiter
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for range ticker.C {
		s.cleanup()
	}
}

func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for userID, u := range s.users {
		if now.Sub(u.lastSeen) > s.ttl {
			delete(s.users, userID)
		}
	}
}

// RateLimitPerUser enforces a token bucket per authenticated user. Returns
// HTTP 429 when the budget is exhausted. Applied to payment submission so a
// stuck client cannot hammer the gateway.
func RateLimitPerUser(rps, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	const cleanupInterval = 3 * time.Minute
	store := newLimiterStore(rps, burst, cleanupInterval)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !store.get(userID).Allow() {
				log.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "RATE_LIMITED",
						Message: "too many requests, slow down",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
