package ratelimit

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMiddleware_LimitsPerClient(t *testing.T) {
	rl := New(Config{MaxRequests: 2, Window: time.Minute, Route: "chat"})
	defer rl.Stop()

	app := fiber.New()
	app.Post("/chat", rl.Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/chat", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/chat", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Too many requests, please try again later."}`, string(body))
}

func TestAllow_Refills(t *testing.T) {
	rl := New(Config{MaxRequests: 10, Window: time.Minute})
	defer rl.Stop()

	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		require.True(t, rl.allow("1.2.3.4"))
	}
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"))

	now = now.Add(6 * time.Second)
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))

	now = now.Add(2 * time.Minute)
	for i := 0; i < 10; i++ {
		require.True(t, rl.allow("1.2.3.4"))
	}
	assert.False(t, rl.allow("1.2.3.4"))
}

func TestAllow_ExportedSharesBuckets(t *testing.T) {
	rl := New(Config{MaxRequests: 2, Window: time.Minute, Route: "chat-ws"})
	defer rl.Stop()

	assert.True(t, rl.Allow("9.9.9.9"))
	assert.True(t, rl.allow("9.9.9.9"))
	assert.False(t, rl.Allow("9.9.9.9"))
	assert.Equal(t, "Too many requests, please try again later.", rl.Message())
}

func TestEvictIdle(t *testing.T) {
	rl := New(Config{MaxRequests: 1})
	defer rl.Stop()

	now := time.Unix(0, 0)
	rl.now = func() time.Time { return now }
	rl.allow("a")

	now = now.Add(11 * time.Minute)
	rl.evictIdle(10 * time.Minute)

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.buckets)
}

func TestStopReleasesCleanupGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := New(Config{})
	rl.Stop()
	rl.Stop()
}
