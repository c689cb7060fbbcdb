package middleware

import (
	"net/http"
	"rentdesk/pkg/logger"
	"strings"
	"sync"
	"time"
)

type ContactExtractor func(r *http.Request) string

// ContactRateLimiter throttles public booking submissions per contact key
// (normalized email) inside a sliding window.
type ContactRateLimiter struct {
	mu               sync.RWMutex
	requests         map[string][]time.Time
	limit            int
	window           time.Duration
	contactExtractor ContactExtractor
	log              *logger.Logger
	stopCh           chan struct{}
}

func NewContactRateLimiter(limit int, window time.Duration, extractor ContactExtractor, log *logger.Logger) *ContactRateLimiter {
	limiter := &ContactRateLimiter{
		requests:         make(map[string][]time.Time),
		limit:            limit,
		window:           window,
		contactExtractor: extractor,
		log:              log,
		stopCh:           make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *ContactRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for contact, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, contact)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ContactRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *ContactRateLimiter) Allow(contact string) bool {
	if contact == "" {
		return true
	}

	now := time.Now()

	// Check and increment under one lock so two concurrent requests for
	// the same contact cannot both pass a nearly-full window.
	rl.mu.Lock()
	defer rl.mu.Unlock()

	validTimestamps := make([]time.Time, 0)
	for _, ts := range rl.requests[contact] {
		if now.Sub(ts) < rl.window {
			validTimestamps = append(validTimestamps, ts)
		}
	}

	if len(validTimestamps) >= rl.limit {
		rl.requests[contact] = validTimestamps
		return false
	}

	rl.requests[contact] = append(validTimestamps, now)
	return true
}

func ContactRateLimit(limiter *ContactRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contact := extractContact(r, limiter.contactExtractor)

			if contact == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(contact) {
				rejectRateLimited(w, limiter.log, r, contact)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractContact(r *http.Request, extractor ContactExtractor) string {
	if extractor == nil {
		return DefaultContactExtractor(r)
	}
	return extractor(r)
}

// DefaultContactExtractor reads the submitting contact's email from the
// X-Contact-Email header set by the form frontend.
func DefaultContactExtractor(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.Header.Get("X-Contact-Email")))
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, contact string) {
	log.Warn("Submission rate limit exceeded",
		"request_id", requestIDFromContext(r.Context()),
		"contact", contact,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many submissions, please try again later"}`))
}
