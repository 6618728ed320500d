package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
}

func TestIPRateLimiter_SweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	for _, ip := range []string{"a", "b", "c"} {
		l.Allow(ip)
	}
	now = now.Add(2 * time.Minute)
	l.Allow("d")

	assert.Len(t, l.hits, 1)
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/create-order", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, send("").Code)

	rec := send("")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"success":false`)

	assert.Equal(t, http.StatusCreated, send("203.0.113.9, 10.0.0.1").Code)
}

func TestFirstForwardedFor(t *testing.T) {
	assert.Equal(t, "", firstForwardedFor(""))
	assert.Equal(t, "1.2.3.4", firstForwardedFor("1.2.3.4"))
	assert.Equal(t, "1.2.3.4", firstForwardedFor(" 1.2.3.4 , 5.6.7.8"))
}
