package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d denied inside the window", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("fourth request allowed past the limit")
	}
	// Other clients have their own bucket.
	if !l.Allow("5.6.7.8") {
		t.Fatal("unrelated client throttled")
	}
}

func TestWindowResets(t *testing.T) {
	l := New(1, 20*time.Millisecond)

	if !l.Allow("1.2.3.4") {
		t.Fatal("first request denied")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second request allowed in same window")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Fatal("request denied after window reset")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

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
