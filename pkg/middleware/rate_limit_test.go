package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentdesk/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
}

func TestContactRateLimiter_Allow(t *testing.T) {
	limiter := NewContactRateLimiter(3, time.Minute, DefaultContactExtractor, testLogger())
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("anna.kiss@example.com") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("anna.kiss@example.com") {
		t.Error("request over the limit should be rejected")
	}
	if !limiter.Allow("other@example.com") {
		t.Error("a different contact should not share the window")
	}
	if !limiter.Allow("") {
		t.Error("requests without a contact are not limited")
	}
}

func TestContactRateLimiter_ConcurrentRequestsRespectLimit(t *testing.T) {
	const limit = 5
	limiter := NewContactRateLimiter(limit, time.Minute, DefaultContactExtractor, testLogger())
	defer limiter.Stop()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("anna.kiss@example.com") {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Errorf("expected exactly %d allowed requests, got %d", limit, allowed)
	}
}
