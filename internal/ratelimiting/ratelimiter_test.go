package ratelimiting

import (
	"net/http"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockedRateLimiter struct {
	consumeFunc func(key string) bool
}

func (m *mockedRateLimiter) Consume(key string) bool {
	return m.consumeFunc(key)
}

func TestTokenBucketRateLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	rateLimiter, stop := NewTokenBucketRateLimiter(RefillPerSecond(1), BurstSize(2))
	defer stop()

	assert.True(t, rateLimiter.Consume("user2"))

	// Burst of 2
	assert.True(t, rateLimiter.Consume("user1"))
	assert.True(t, rateLimiter.Consume("user1"))
	assert.False(t, rateLimiter.Consume("user1"))

	time.Sleep(1000 * time.Millisecond)
	runtime.Gosched()

	// Refill rate of 1
	assert.True(t, rateLimiter.Consume("user1"))
	assert.False(t, rateLimiter.Consume("user1"))

	// Burst of 2 - even after refill
	assert.True(t, rateLimiter.Consume("user3"))
	assert.True(t, rateLimiter.Consume("user3"))
	assert.False(t, rateLimiter.Consume("user3"))

	assert.True(t, rateLimiter.Consume("user2"))
	assert.True(t, rateLimiter.Consume("user2"))
	assert.False(t, rateLimiter.Consume("user2"))
}

func TestIPKeyFunc(t *testing.T) {
	t.Run("bare remote addr", func(t *testing.T) {
		request := &http.Request{RemoteAddr: "123.123.123.123"}
		assert.Equal(t, "ip: 123.123.123.123", IPKeyFunc(request))
	})

	t.Run("remote addr with port", func(t *testing.T) {
		request := &http.Request{RemoteAddr: "123.123.123.123:58418"}
		assert.Equal(t, "ip: 123.123.123.123", IPKeyFunc(request))
	})

	t.Run("ipv6 remote addr with port", func(t *testing.T) {
		request := &http.Request{RemoteAddr: "[::1]:58418"}
		assert.Equal(t, "ip: [::1]", IPKeyFunc(request))
	})

	t.Run("forwarded for takes precedence", func(t *testing.T) {
		request := &http.Request{
			RemoteAddr: "169.254.169.126:58418",
			Header:     http.Header{"X-Forwarded-For": []string{"12.12.123.123,34.111.7.239"}},
		}
		assert.Equal(t, "ip: 12.12.123.123", IPKeyFunc(request))
	})

	t.Run("forwarded for with spaces", func(t *testing.T) {
		request := &http.Request{
			RemoteAddr: "169.254.169.126:58418",
			Header:     http.Header{"X-Forwarded-For": []string{"12.12.123.123, 34.111.7.239"}},
		}
		assert.Equal(t, "ip: 12.12.123.123", IPKeyFunc(request))
	})
}

func TestUserIDKeyFunc(t *testing.T) {
	t.Run("user id header", func(t *testing.T) {
		request := &http.Request{Header: http.Header{"X-User-Id": []string{"some-user"}}}
		assert.Equal(t, "user-id: some-user", UserIDKeyFunc(request))
	})

	t.Run("missing user id", func(t *testing.T) {
		request := &http.Request{Header: http.Header{}}
		assert.Equal(t, "user-id: <missing>", UserIDKeyFunc(request))
	})

	t.Run("overlong user id is truncated", func(t *testing.T) {
		request := &http.Request{Header: http.Header{"X-User-Id": []string{strings.Repeat("a", 60)}}}
		assert.Equal(t, "user-id: "+strings.Repeat("a", 50), UserIDKeyFunc(request))
	})
}

func TestRequestBasedRateLimiter(t *testing.T) {
	var expectedKey string
	var allowed bool
	rateLimiter := &mockedRateLimiter{
		consumeFunc: func(key string) bool {
			t.Helper()
			assert.Equal(t, expectedKey, key)
			return allowed
		},
	}
	requestRateLimiter := NewRequestBasedRateLimiter(rateLimiter, IPKeyFunc)

	expectedKey = "ip: 1.1.1.1"
	allowed = true
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1"}))
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1"}))
	allowed = false
	assert.False(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1"}))

	expectedKey = "ip: 2.1.1.1"
	allowed = true
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "2.1.1.1"}))

	expectedKey = "ip: 1.1.1.1"
	allowed = false
	assert.False(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1"}))

	assert.Equal(t, "ip: 3.1.1.1", requestRateLimiter.KeyFor(&http.Request{RemoteAddr: "3.1.1.1"}))
}
