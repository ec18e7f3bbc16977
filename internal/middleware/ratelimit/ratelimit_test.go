package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLimiter_Allow(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: clk.Now})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request within the window must be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients are limited independently")
	}

	clk.Advance(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("a new window must reset the counter")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestLimiter_ContinuousTrafficDoesNotExtendWindow(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	rl := NewLimiter(Config{RequestsPerMinute: 2, Now: clk.Now})
	defer rl.Stop()

	rl.Allow("ip")
	clk.Advance(40 * time.Second)
	rl.Allow("ip")
	clk.Advance(40 * time.Second)
	if !rl.Allow("ip") {
		t.Fatal("window started 80s ago; request must open a new window")
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	rl := NewLimiter(Config{RequestsPerMinute: 10, Now: clk.Now})
	defer rl.Stop()

	rl.Allow("old")
	clk.Advance(11 * time.Minute)
	rl.Allow("new")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("cleanupStaleEntries() = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_MiddlewareLimitsOnlyListedMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/get-categories", nil))
		return rr.Code
	}

	if code := do(http.MethodPost); code != http.StatusOK {
		t.Fatalf("first POST = %d", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", code)
	}
	if code := do(http.MethodGet); code != http.StatusOK {
		t.Fatalf("GET must not be limited, got %d", code)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
