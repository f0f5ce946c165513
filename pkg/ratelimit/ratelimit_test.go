package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	l := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within budget", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("request over budget allowed")
	}
	// other IPs have their own buckets
	if !l.Allow("10.0.0.2") {
		t.Fatalf("fresh IP denied")
	}
}

func TestWindowResets(t *testing.T) {
	l := New(1, 20*time.Millisecond)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("first request denied")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("second request in window allowed")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("request after window denied")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
}
